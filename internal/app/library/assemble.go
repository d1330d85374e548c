package library

import (
	"time"

	"github.com/dalemusser/bayit/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CourseSummary is the catalog detail embedded in a user view.
type CourseSummary struct {
	ID           string          `json:"_id"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	Instructor   string          `json:"instructor,omitempty"`
	PriceCents   int64           `json:"priceCents"`
	ThumbnailURL string          `json:"thumbnailUrl,omitempty"`
	CategoryID   string          `json:"categoryId,omitempty"`
	CategoryName string          `json:"categoryName,omitempty"`
	Lessons      []LessonSummary `json:"lessons"`
}

// LessonSummary is one lesson inside a CourseSummary.
type LessonSummary struct {
	ID              string `json:"lessonId"`
	Title           string `json:"title"`
	VideoURL        string `json:"videoUrl,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
}

// PurchaseView is a purchase entry with its course resolved. Course is nil
// when the course has since been removed from the catalog.
type PurchaseView struct {
	CourseID         string         `json:"courseId"`
	Course           *CourseSummary `json:"course"`
	CompletedLessons []string       `json:"completedLessons"`
	EnrolledAt       time.Time      `json:"enrolledAt"`
	LastViewed       time.Time      `json:"lastViewed"`
}

// UserView is the denormalized user returned by every library endpoint.
// It never carries credential material.
type UserView struct {
	ID           string          `json:"_id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	IsVerified   bool            `json:"isVerified"`
	HasPassword  bool            `json:"hasPassword"`
	SocialLinked bool            `json:"socialLinked"`
	Streak       int             `json:"streak"`
	LastActivity *time.Time      `json:"lastActivity"`
	Purchases    []PurchaseView  `json:"purchases"`
	Cart         []CourseSummary `json:"cart"`
}

// ReferencedCourses returns the distinct course ids a view of u needs,
// purchases first, then cart.
func ReferencedCourses(u *models.User) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(u.Purchases)+len(u.Cart))
	out := make([]primitive.ObjectID, 0, len(u.Purchases)+len(u.Cart))
	for _, p := range u.Purchases {
		if _, ok := seen[p.CourseID]; !ok {
			seen[p.CourseID] = struct{}{}
			out = append(out, p.CourseID)
		}
	}
	for _, id := range u.Cart {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// Assemble projects u into a UserView, resolving course and category ids
// through the given maps. Cart ids missing from courses are left out.
func Assemble(u *models.User, courses map[primitive.ObjectID]models.Course, categories map[primitive.ObjectID]models.Category) UserView {
	v := UserView{
		ID:           u.ID.Hex(),
		Name:         u.FullName,
		Email:        u.Email,
		IsVerified:   u.IsVerified,
		HasPassword:  u.HasPassword(),
		SocialLinked: u.GoogleID != nil && *u.GoogleID != "",
		Streak:       u.Streak,
		Purchases:    make([]PurchaseView, 0, len(u.Purchases)),
		Cart:         make([]CourseSummary, 0, len(u.Cart)),
	}
	if !u.LastActivity.IsZero() {
		t := u.LastActivity.UTC()
		v.LastActivity = &t
	}

	for _, p := range u.Purchases {
		pv := PurchaseView{
			CourseID:         p.CourseID.Hex(),
			CompletedLessons: append([]string{}, p.CompletedLessons...),
			EnrolledAt:       p.EnrolledAt.UTC(),
			LastViewed:       p.LastViewed.UTC(),
		}
		if c, ok := courses[p.CourseID]; ok {
			s := Summarize(c, categories)
			pv.Course = &s
		}
		v.Purchases = append(v.Purchases, pv)
	}

	for _, id := range u.Cart {
		if c, ok := courses[id]; ok {
			v.Cart = append(v.Cart, Summarize(c, categories))
		}
	}
	return v
}

// Summarize projects one course, resolving its category name through categories.
func Summarize(c models.Course, categories map[primitive.ObjectID]models.Category) CourseSummary {
	s := CourseSummary{
		ID:           c.ID.Hex(),
		Title:        c.Title,
		Description:  c.Description,
		Instructor:   c.Instructor,
		PriceCents:   c.PriceCents,
		ThumbnailURL: c.ThumbnailURL,
		Lessons:      make([]LessonSummary, 0, len(c.Lessons)),
	}
	if !c.CategoryID.IsZero() {
		s.CategoryID = c.CategoryID.Hex()
		if cat, ok := categories[c.CategoryID]; ok {
			s.CategoryName = cat.Name
		}
	}
	for _, l := range c.Lessons {
		s.Lessons = append(s.Lessons, LessonSummary{
			ID:              l.LessonID,
			Title:           l.Title,
			VideoURL:        l.VideoURL,
			DurationSeconds: l.DurationSeconds,
		})
	}
	return s
}
