package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/coursecatalog/catalog-api/internal/core/domain"
	"github.com/coursecatalog/catalog-api/internal/core/ports"
)

const (
	collectionCourses = "courses"
	identityIndex     = "creator_title_instructor_unique"
)

type CourseRepository struct {
	col     *mongo.Collection
	timeout time.Duration
}

func NewCourseRepository(db *mongo.Database, timeout time.Duration) *CourseRepository {
	return &CourseRepository{col: db.Collection(collectionCourses), timeout: timeoutOrDefault(timeout)}
}

type mongoCourse struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	PurchaseSequence int                `bson:"purchase_sequence"`
	Title            string             `bson:"title"`
	Category         string             `bson:"category"`
	Tools            string             `bson:"tools"`
	Hours            float64            `bson:"hours"`
	Sections         int                `bson:"sections"`
	Lectures         int                `bson:"lectures"`
	Instructor       string             `bson:"instructor"`
	DateBought       time.Time          `bson:"date_bought"`
	DateStarted      time.Time          `bson:"date_started"`
	Started          bool               `bson:"started"`
	DateCompleted    time.Time          `bson:"date_completed"`
	Completed        bool               `bson:"completed"`
	Description      string             `bson:"description"`
	Notes            string             `bson:"notes"`
	Provider         string             `bson:"provider"`
	Creator          string             `bson:"creator"`
	DateAdded        time.Time          `bson:"date_added"`
	DateUpdated      time.Time          `bson:"date_updated"`
}

func toMongoCourse(c *domain.Course) mongoCourse {
	return mongoCourse{
		PurchaseSequence: c.PurchaseSequence,
		Title:            c.Title,
		Category:         c.Category,
		Tools:            c.Tools,
		Hours:            c.Hours,
		Sections:         c.Sections,
		Lectures:         c.Lectures,
		Instructor:       c.Instructor,
		DateBought:       c.DateBought,
		DateStarted:      c.DateStarted,
		Started:          c.Started,
		DateCompleted:    c.DateCompleted,
		Completed:        c.Completed,
		Description:      c.Description,
		Notes:            c.Notes,
		Provider:         c.Provider,
		Creator:          c.Creator,
		DateAdded:        c.DateAdded,
		DateUpdated:      c.DateUpdated,
	}
}

func (m mongoCourse) toDomain() *domain.Course {
	return &domain.Course{
		ID:               m.ID.Hex(),
		PurchaseSequence: m.PurchaseSequence,
		Title:            m.Title,
		Category:         m.Category,
		Tools:            m.Tools,
		Hours:            m.Hours,
		Sections:         m.Sections,
		Lectures:         m.Lectures,
		Instructor:       m.Instructor,
		DateBought:       m.DateBought.UTC(),
		DateStarted:      m.DateStarted.UTC(),
		Started:          m.Started,
		DateCompleted:    m.DateCompleted.UTC(),
		Completed:        m.Completed,
		Description:      m.Description,
		Notes:            m.Notes,
		Provider:         m.Provider,
		Creator:          m.Creator,
		DateAdded:        m.DateAdded.UTC(),
		DateUpdated:      m.DateUpdated.UTC(),
	}
}

// Create inserts a new course document and sets c.ID.
func (r *CourseRepository) Create(ctx context.Context, c *domain.Course) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.col.InsertOne(ctx, toMongoCourse(c))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.CourseExists(c.Title, c.Instructor)
		}
		return fmt.Errorf("insert course: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("insert course: unexpected id type %T", res.InsertedID)
	}
	c.ID = oid.Hex()
	return nil
}

func (r *CourseRepository) FindByID(ctx context.Context, id string) (*domain.Course, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *CourseRepository) FindByIdentity(ctx context.Context, title, instructor, creator string) (*domain.Course, error) {
	return r.findOne(ctx, bson.M{"creator": creator, "title": title, "instructor": instructor})
}

func (r *CourseRepository) findOne(ctx context.Context, filter bson.M) (*domain.Course, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var m mongoCourse
	if err := r.col.FindOne(ctx, filter).Decode(&m); err != nil {
		if notFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return m.toDomain(), nil
}

// List returns the courses matching filter ordered by purchase sequence.
func (r *CourseRepository) List(ctx context.Context, filter ports.CourseFilter) ([]*domain.Course, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := bson.M{}
	if filter.Creator != "" {
		query["creator"] = filter.Creator
	}
	opts := options.Find().SetSort(bson.D{{Key: "purchase_sequence", Value: 1}, {Key: "title", Value: 1}})

	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoCourse
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode courses: %w", err)
	}
	out := make([]*domain.Course, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// Update overwrites the mutable fields of c. Creator and dateAdded are never
// written after creation.
func (r *CourseRepository) Update(ctx context.Context, c *domain.Course) error {
	oid, err := objectID(c.ID)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	m := toMongoCourse(c)
	set := bson.M{
		"purchase_sequence": m.PurchaseSequence,
		"title":             m.Title,
		"category":          m.Category,
		"tools":             m.Tools,
		"hours":             m.Hours,
		"sections":          m.Sections,
		"lectures":          m.Lectures,
		"instructor":        m.Instructor,
		"date_bought":       m.DateBought,
		"date_started":      m.DateStarted,
		"started":           m.Started,
		"date_completed":    m.DateCompleted,
		"completed":         m.Completed,
		"description":       m.Description,
		"notes":             m.Notes,
		"provider":          m.Provider,
		"date_updated":      m.DateUpdated,
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.CourseExists(c.Title, c.Instructor)
		}
		return fmt.Errorf("update course: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// EnsureIndexes creates necessary indexes on the courses collection.
func (r *CourseRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "creator", Value: 1},
				{Key: "title", Value: 1},
				{Key: "instructor", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName(identityIndex),
		},
		{Keys: bson.D{{Key: "creator", Value: 1}, {Key: "purchase_sequence", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
