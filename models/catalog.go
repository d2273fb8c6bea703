package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Course is a catalog entry students can ask the assistant about.
// Edu is the minimum education level required: 0=none, 1=primary,
// 2=secondary, 3=high school, 4=bachelor.
type Course struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Edu      int                `bson:"edu" json:"edu"`
	Type     string             `bson:"type" json:"type"`
	Price    int64              `bson:"price" json:"price"`
	Duration int                `bson:"duration" json:"duration"`
}

// School is a campus where courses are taught.
type School struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name string             `bson:"name" json:"name"`
	City string             `bson:"city" json:"city"`
}

// CourseReservation records a student's intent to take a course at a school.
type CourseReservation struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Course      string             `bson:"course" json:"course"`
	StudentName string             `bson:"student_name" json:"student_name"`
	ContactInfo string             `bson:"contact_info" json:"contact_info"`
	School      string             `bson:"school" json:"school"`
	Remark      string             `bson:"remark,omitempty" json:"remark,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
