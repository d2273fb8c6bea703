package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"edu-ai-assistant/models"
)

// CatalogService is plain data access for courses, schools and course
// reservations. No business logic lives here.
type CatalogService struct {
	courses      *mongo.Collection
	schools      *mongo.Collection
	reservations *mongo.Collection
}

func NewCatalogService(db *mongo.Database) *CatalogService {
	return &CatalogService{
		courses:      db.Collection("courses"),
		schools:      db.Collection("schools"),
		reservations: db.Collection("course_reservations"),
	}
}

// Courses

func (s *CatalogService) CreateCourse(ctx context.Context, course *models.Course) error {
	course.ID = primitive.NewObjectID()
	_, err := s.courses.InsertOne(ctx, course)
	return err
}

func (s *CatalogService) GetCourse(ctx context.Context, id primitive.ObjectID) (*models.Course, error) {
	var course models.Course
	err := s.courses.FindOne(ctx, bson.M{"_id": id}).Decode(&course)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// ListCourses filters by course type and minimum education level when the
// corresponding argument is set (non-empty type, non-negative maxEdu).
func (s *CatalogService) ListCourses(ctx context.Context, courseType string, maxEdu int) ([]models.Course, error) {
	filter := bson.M{}
	if courseType != "" {
		filter["type"] = courseType
	}
	if maxEdu >= 0 {
		filter["edu"] = bson.M{"$lte": maxEdu}
	}

	cursor, err := s.courses.Find(ctx, filter, options.Find().SetSort(bson.M{"price": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	courses := make([]models.Course, 0)
	if err := cursor.All(ctx, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (s *CatalogService) UpdateCourse(ctx context.Context, id primitive.ObjectID, course *models.Course) error {
	update := bson.M{"$set": bson.M{
		"name":     course.Name,
		"edu":      course.Edu,
		"type":     course.Type,
		"price":    course.Price,
		"duration": course.Duration,
	}}
	result, err := s.courses.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *CatalogService) DeleteCourse(ctx context.Context, id primitive.ObjectID) error {
	result, err := s.courses.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Schools

func (s *CatalogService) CreateSchool(ctx context.Context, school *models.School) error {
	school.ID = primitive.NewObjectID()
	_, err := s.schools.InsertOne(ctx, school)
	return err
}

func (s *CatalogService) GetSchool(ctx context.Context, id primitive.ObjectID) (*models.School, error) {
	var school models.School
	err := s.schools.FindOne(ctx, bson.M{"_id": id}).Decode(&school)
	if err != nil {
		return nil, err
	}
	return &school, nil
}

func (s *CatalogService) ListSchools(ctx context.Context) ([]models.School, error) {
	cursor, err := s.schools.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"city": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	schools := make([]models.School, 0)
	if err := cursor.All(ctx, &schools); err != nil {
		return nil, err
	}
	return schools, nil
}

func (s *CatalogService) UpdateSchool(ctx context.Context, id primitive.ObjectID, school *models.School) error {
	update := bson.M{"$set": bson.M{
		"name": school.Name,
		"city": school.City,
	}}
	result, err := s.schools.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *CatalogService) DeleteSchool(ctx context.Context, id primitive.ObjectID) error {
	result, err := s.schools.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Reservations

func (s *CatalogService) CreateReservation(ctx context.Context, reservation *models.CourseReservation) error {
	if reservation.Course == "" || reservation.StudentName == "" || reservation.ContactInfo == "" {
		return fmt.Errorf("course, student_name and contact_info are required")
	}
	reservation.ID = primitive.NewObjectID()
	reservation.CreatedAt = time.Now()
	_, err := s.reservations.InsertOne(ctx, reservation)
	return err
}

func (s *CatalogService) GetReservation(ctx context.Context, id primitive.ObjectID) (*models.CourseReservation, error) {
	var reservation models.CourseReservation
	err := s.reservations.FindOne(ctx, bson.M{"_id": id}).Decode(&reservation)
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (s *CatalogService) UpdateReservation(ctx context.Context, id primitive.ObjectID, reservation *models.CourseReservation) error {
	update := bson.M{"$set": bson.M{
		"course":       reservation.Course,
		"student_name": reservation.StudentName,
		"contact_info": reservation.ContactInfo,
		"school":       reservation.School,
		"remark":       reservation.Remark,
	}}
	result, err := s.reservations.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *CatalogService) ListReservations(ctx context.Context, studentName string) ([]models.CourseReservation, error) {
	filter := bson.M{}
	if studentName != "" {
		filter["student_name"] = studentName
	}

	cursor, err := s.reservations.Find(ctx, filter, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reservations := make([]models.CourseReservation, 0)
	if err := cursor.All(ctx, &reservations); err != nil {
		return nil, err
	}
	return reservations, nil
}

func (s *CatalogService) DeleteReservation(ctx context.Context, id primitive.ObjectID) error {
	result, err := s.reservations.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
