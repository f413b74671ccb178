package catalog

import "context"

const (
	DefaultTestimonialRole   = "Khách hàng"
	DefaultTestimonialAvatar = "https://i.pravatar.cc/48"
	DefaultTestimonialRating = 5
)

type Testimonial struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Rating int    `json:"rating"`
	Text   string `json:"text"`
	Avatar string `json:"avatar"`
}

// TestimonialRecord is a testimonial as stored. Nil fields were absent in the
// backing document or row.
type TestimonialRecord struct {
	ID       string
	Name     string
	Role     *string
	Rating   *int
	Text     string
	Avatar   *string
	Approved *bool
}

type TestimonialSource interface {
	ListTestimonials(ctx context.Context) ([]TestimonialRecord, error)
}

// publish drops unapproved records and fills defaults. Records without an
// approval flag are shown.
func publish(records []TestimonialRecord) []Testimonial {
	out := make([]Testimonial, 0, len(records))
	for _, r := range records {
		if r.Approved != nil && !*r.Approved {
			continue
		}
		t := Testimonial{
			ID:     r.ID,
			Name:   r.Name,
			Role:   DefaultTestimonialRole,
			Rating: DefaultTestimonialRating,
			Text:   r.Text,
			Avatar: DefaultTestimonialAvatar,
		}
		if r.Role != nil {
			t.Role = *r.Role
		}
		if r.Rating != nil {
			t.Rating = *r.Rating
		}
		if r.Avatar != nil {
			t.Avatar = *r.Avatar
		}
		out = append(out, t)
	}
	return out
}
