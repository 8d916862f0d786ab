package mongodb

import (
	"context"
	"fmt"
	"time"

	"ridepool/internal/apperrors"
	"ridepool/internal/models"
	"ridepool/internal/repositories/interfaces"
	"ridepool/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type payoutRepository struct {
	collection *mongo.Collection
}

func NewPayoutRepository(db *mongo.Database) interfaces.PayoutRepository {
	return &payoutRepository{
		collection: db.Collection("payouts"),
	}
}

func (r *payoutRepository) Create(ctx context.Context, payout *models.Payout) error {
	if payout.ID.IsZero() {
		payout.ID = primitive.NewObjectID()
	}
	payout.CreatedAt = time.Now()
	payout.UpdatedAt = payout.CreatedAt

	_, err := r.collection.InsertOne(ctx, payout)
	if err != nil {
		return fmt.Errorf("failed to create payout: %w", err)
	}

	return nil
}

func (r *payoutRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Payout, error) {
	var payout models.Payout
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&payout)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.ErrPayoutNotFound
		}
		return nil, fmt.Errorf("failed to get payout: %w", err)
	}

	return &payout, nil
}

func (r *payoutRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update payout: %w", err)
	}
	if result.MatchedCount == 0 {
		return apperrors.ErrPayoutNotFound
	}

	return nil
}

func (r *payoutRepository) GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Payout, int64, error) {
	filter := bson.M{"driver_id": driverID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count payouts: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payouts: %w", err)
	}
	defer cursor.Close(ctx)

	var payouts []*models.Payout
	if err := cursor.All(ctx, &payouts); err != nil {
		return nil, 0, fmt.Errorf("failed to decode payouts: %w", err)
	}

	return payouts, total, nil
}

func (r *payoutRepository) GetOutstandingByDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.Payout, error) {
	filter := bson.M{
		"driver_id": driverID,
		"status": bson.M{"$in": bson.A{
			models.PayoutStatusPending,
			models.PayoutStatusProcessing,
		}},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list outstanding payouts: %w", err)
	}
	defer cursor.Close(ctx)

	var payouts []*models.Payout
	if err := cursor.All(ctx, &payouts); err != nil {
		return nil, fmt.Errorf("failed to decode payouts: %w", err)
	}

	return payouts, nil
}

func (r *payoutRepository) GetSettledTransactionIDs(ctx context.Context, driverID primitive.ObjectID) ([]primitive.ObjectID, error) {
	filter := bson.M{
		"driver_id": driverID,
		"status":    bson.M{"$ne": models.PayoutStatusFailed},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list settled payouts: %w", err)
	}
	defer cursor.Close(ctx)

	var payouts []*models.Payout
	if err := cursor.All(ctx, &payouts); err != nil {
		return nil, fmt.Errorf("failed to decode payouts: %w", err)
	}

	var ids []primitive.ObjectID
	for _, p := range payouts {
		ids = append(ids, p.TransactionIDs...)
	}

	return ids, nil
}
