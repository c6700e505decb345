package todostore

import (
	"context"
	"fmt"

	"github.com/dalemusser/todohub/internal/app/system/htmlsanitize"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RepairStats reports what RepairLegacy changed.
type RepairStats struct {
	DatesConverted int64
	TextCleaned    int64
}

// RepairLegacy fixes todos written by older clients: dates stored as
// strings are converted to BSON dates (unparseable values are left alone)
// and names/projects are reduced to printable plain text. Safe to run on
// every startup.
func (s *Store) RepairLegacy(ctx context.Context) (RepairStats, error) {
	var st RepairStats

	for _, field := range []string{"deadline_date", "creation_date"} {
		n, err := s.convertStringDates(ctx, field)
		if err != nil {
			return st, fmt.Errorf("convert %s: %w", field, err)
		}
		st.DatesConverted += n
	}

	n, err := s.cleanText(ctx)
	if err != nil {
		return st, fmt.Errorf("clean text: %w", err)
	}
	st.TextCleaned = n
	return st, nil
}

func (s *Store) convertStringDates(ctx context.Context, field string) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{field: bson.M{"$type": "string"}},
		mongo.Pipeline{
			{{Key: "$set", Value: bson.M{
				field: bson.M{"$convert": bson.M{
					"input":   "$" + field,
					"to":      "date",
					"onError": "$" + field,
					"onNull":  "$" + field,
				}},
			}}},
		})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *Store) cleanText(ctx context.Context) (int64, error) {
	cur, err := s.c.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"name": 1, "project": 1}))
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var writes []mongo.WriteModel
	for cur.Next(ctx) {
		var doc struct {
			ID      primitive.ObjectID `bson:"_id"`
			Name    string             `bson:"name"`
			Project string             `bson:"project"`
		}
		if err := cur.Decode(&doc); err != nil {
			// Non-string name/project; leave for manual repair.
			continue
		}
		set := bson.M{}
		if htmlsanitize.NeedsCleaning(doc.Name) {
			if cleaned := htmlsanitize.PlainText(doc.Name); cleaned != "" {
				set["name"] = cleaned
			}
		}
		if htmlsanitize.NeedsCleaning(doc.Project) {
			set["project"] = htmlsanitize.PlainText(doc.Project)
		}
		if len(set) > 0 {
			writes = append(writes, mongo.NewUpdateOneModel().
				SetFilter(bson.M{"_id": doc.ID}).
				SetUpdate(bson.M{"$set": set}))
		}
	}
	if err := cur.Err(); err != nil {
		return 0, err
	}
	if len(writes) == 0 {
		return 0, nil
	}
	res, err := s.c.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
