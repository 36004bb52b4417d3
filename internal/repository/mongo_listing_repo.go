package repository

import (
	"context"
	"errors"

	"github.com/viraj-gavade/Thriftify-sub000/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoListingRepo struct {
	col *mongo.Collection
}

func NewMongoListingRepo(ctx context.Context, db *mongo.Database) (ListingRepository, error) {
	col := db.Collection("listings")
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return nil, err
	}
	return &mongoListingRepo{col: col}, nil
}

func (r *mongoListingRepo) Create(ctx context.Context, l *models.Listing) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	if l.Images == nil {
		l.Images = []string{}
	}
	if l.BookmarkedBy == nil {
		l.BookmarkedBy = []primitive.ObjectID{}
	}
	l.CreatedAt = now()
	l.UpdatedAt = l.CreatedAt
	_, err := r.col.InsertOne(ctx, l)
	return err
}

func (r *mongoListingRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var l models.Listing
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *mongoListingRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	out := []models.Listing{}
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mongoListingRepo) List(ctx context.Context, f ListingFilter) ([]models.Listing, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Owner != nil {
		filter["owner"] = *f.Owner
	}
	if f.IDs != nil {
		filter["_id"] = bson.M{"$in": f.IDs}
	}
	if !f.IncludeSold {
		filter["sold"] = false
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if f.Skip >= total {
		return []models.Listing{}, total, nil
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(max(f.Skip, 0))
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	out := []models.Listing{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *mongoListingRepo) findOneAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	var l models.Listing
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *mongoListingRepo) Update(ctx context.Context, id primitive.ObjectID, upd ListingUpdate) (*models.Listing, error) {
	set := bson.M{"updated_at": now()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Price != nil {
		set["price"] = *upd.Price
	}
	if upd.Category != nil {
		set["category"] = *upd.Category
	}
	if upd.Location != nil {
		set["location"] = *upd.Location
	}
	if upd.Images != nil {
		set["images"] = upd.Images
	}
	return r.findOneAndUpdate(ctx, id, bson.M{"$set": set})
}

func (r *mongoListingRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoListingRepo) MarkSold(ctx context.Context, id primitive.ObjectID) (*models.Listing, error) {
	return r.findOneAndUpdate(ctx, id, bson.M{"$set": bson.M{"sold": true, "updated_at": now()}})
}

func (r *mongoListingRepo) SetBookmark(ctx context.Context, listingID, userID primitive.ObjectID, on bool) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	op := "$pull"
	if on {
		op = "$addToSet"
	}
	res, err := r.col.UpdateByID(ctx, listingID, bson.M{op: bson.M{"bookmarked_by": userID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
