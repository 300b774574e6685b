package models

import (
	"time"
)

// Category represents the closed set of project categories
type Category string

const (
	CategoryPersonal  Category = "Personal"
	CategoryCollege   Category = "College"
	CategoryWork      Category = "Work"
	CategoryFreelance Category = "Freelance"
)

// ProjectStatus represents the publication state of a project
type ProjectStatus string

const (
	StatusDraft     ProjectStatus = "draft"
	StatusPublished ProjectStatus = "published"
)

// Valid reports whether s is a known status
func (s ProjectStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// StatusFilter selects records by status when listing. The zero value matches every record.
type StatusFilter string

const (
	FilterAll       StatusFilter = ""
	FilterDraft     StatusFilter = StatusFilter(StatusDraft)
	FilterPublished StatusFilter = StatusFilter(StatusPublished)
)

// ParseStatusFilter parses the status_filter query value. "all" and "" both mean no filter.
func ParseStatusFilter(value string) (StatusFilter, bool) {
	switch value {
	case "", "all":
		return FilterAll, true
	case string(StatusDraft):
		return FilterDraft, true
	case string(StatusPublished):
		return FilterPublished, true
	default:
		return FilterAll, false
	}
}

// Matches reports whether a record with the given status passes the filter
func (f StatusFilter) Matches(status ProjectStatus) bool {
	return f == FilterAll || ProjectStatus(f) == status
}

// ProjectImage references an uploaded image
type ProjectImage struct {
	Key    string `json:"key" dynamodbav:"key" validate:"required"`
	URL    string `json:"url" dynamodbav:"url" validate:"required"`
	Alt    string `json:"alt" dynamodbav:"alt"`
	Width  *int   `json:"width,omitempty" dynamodbav:"width,omitempty" validate:"omitempty,gt=0"`
	Height *int   `json:"height,omitempty" dynamodbav:"height,omitempty" validate:"omitempty,gt=0"`
}

// ProjectRecord represents a portfolio project
type ProjectRecord struct {
	ProjectID     string                 `json:"project_id" dynamodbav:"project_id"`
	Title         string                 `json:"title" dynamodbav:"title"`
	Description   string                 `json:"description" dynamodbav:"description"`
	Tags          []string               `json:"tags" dynamodbav:"tags"`
	Category      Category               `json:"category" dynamodbav:"category"`
	ProjectDate   string                 `json:"project_date" dynamodbav:"project_date"`
	Images        []ProjectImage         `json:"images" dynamodbav:"images"`
	IsHighlighted bool                   `json:"is_highlighted" dynamodbav:"is_highlighted"`
	Status        ProjectStatus          `json:"status" dynamodbav:"status"`
	SortOrder     int                    `json:"sort_order" dynamodbav:"sort_order"`
	Extra         map[string]interface{} `json:"extra" dynamodbav:"extra"`
	CreatedAt     time.Time              `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at" dynamodbav:"updated_at"`
}

// PrimaryTag returns the first tag, or "" when the record has none
func (p *ProjectRecord) PrimaryTag() string {
	if len(p.Tags) == 0 {
		return ""
	}
	return p.Tags[0]
}

// Clone returns a deep copy of the record
func (p *ProjectRecord) Clone() *ProjectRecord {
	if p == nil {
		return nil
	}
	out := *p
	out.Tags = cloneStrings(p.Tags)
	out.Images = cloneImages(p.Images)
	out.Extra = cloneMap(p.Extra)
	return &out
}

// ProjectCreate is the payload for creating a project
type ProjectCreate struct {
	ProjectID     string                 `json:"project_id" validate:"omitempty,max=128"`
	Title         string                 `json:"title" validate:"required,min=2,max=140"`
	Description   string                 `json:"description" validate:"required,min=2,max=5000"`
	Tags          []string               `json:"tags" validate:"required,min=1,dive,required"`
	Category      Category               `json:"category" validate:"omitempty,oneof=Personal College Work Freelance"`
	ProjectDate   string                 `json:"project_date" validate:"required,isodate"`
	Images        []ProjectImage         `json:"images" validate:"dive"`
	IsHighlighted bool                   `json:"is_highlighted"`
	Status        ProjectStatus          `json:"status" validate:"omitempty,oneof=draft published"`
	SortOrder     int                    `json:"sort_order"`
	Extra         map[string]interface{} `json:"extra"`
}

// NewProjectRecord builds a record from a create payload, filling defaults.
// Timestamps are left to the store.
func NewProjectRecord(in *ProjectCreate) *ProjectRecord {
	record := &ProjectRecord{
		ProjectID:     in.ProjectID,
		Title:         in.Title,
		Description:   in.Description,
		Tags:          cloneStrings(in.Tags),
		Category:      in.Category,
		ProjectDate:   in.ProjectDate,
		Images:        cloneImages(in.Images),
		IsHighlighted: in.IsHighlighted,
		Status:        in.Status,
		SortOrder:     in.SortOrder,
		Extra:         cloneMap(in.Extra),
	}
	if record.Category == "" {
		record.Category = CategoryPersonal
	}
	if record.Status == "" {
		record.Status = StatusDraft
	}
	if record.Images == nil {
		record.Images = []ProjectImage{}
	}
	if record.Extra == nil {
		record.Extra = map[string]interface{}{}
	}
	return record
}

// ProjectPatch is a partial update. A nil field was omitted and leaves the stored value untouched.
type ProjectPatch struct {
	Title         *string                `json:"title,omitempty" validate:"omitnil,min=2,max=140"`
	Description   *string                `json:"description,omitempty" validate:"omitnil,min=2,max=5000"`
	Tags          []string               `json:"tags,omitempty" validate:"omitnil,min=1,dive,required"`
	Category      *Category              `json:"category,omitempty" validate:"omitnil,oneof=Personal College Work Freelance"`
	ProjectDate   *string                `json:"project_date,omitempty" validate:"omitnil,isodate"`
	Images        []ProjectImage         `json:"images,omitempty" validate:"omitnil,dive"`
	IsHighlighted *bool                  `json:"is_highlighted,omitempty"`
	Status        *ProjectStatus         `json:"status,omitempty" validate:"omitnil,oneof=draft published"`
	SortOrder     *int                   `json:"sort_order,omitempty"`
	Extra         map[string]interface{} `json:"extra,omitempty"`
}

// IsEmpty reports whether the patch sets no field
func (p *ProjectPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Tags == nil && p.Category == nil &&
		p.ProjectDate == nil && p.Images == nil && p.IsHighlighted == nil && p.Status == nil &&
		p.SortOrder == nil && p.Extra == nil
}

// Apply returns a copy of record with the patch fields merged in.
// The input record is not modified.
func (p *ProjectPatch) Apply(record *ProjectRecord) *ProjectRecord {
	out := record.Clone()
	if p == nil {
		return out
	}
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Tags != nil {
		out.Tags = cloneStrings(p.Tags)
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.ProjectDate != nil {
		out.ProjectDate = *p.ProjectDate
	}
	if p.Images != nil {
		out.Images = cloneImages(p.Images)
	}
	if p.IsHighlighted != nil {
		out.IsHighlighted = *p.IsHighlighted
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.SortOrder != nil {
		out.SortOrder = *p.SortOrder
	}
	if p.Extra != nil {
		out.Extra = cloneMap(p.Extra)
	}
	return out
}

// StatusUpdate is the payload of the status endpoint
type StatusUpdate struct {
	Status ProjectStatus `json:"status" validate:"required,oneof=draft published"`
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneImages(in []ProjectImage) []ProjectImage {
	if in == nil {
		return nil
	}
	out := make([]ProjectImage, len(in))
	for i, img := range in {
		out[i] = img
		if img.Width != nil {
			w := *img.Width
			out[i].Width = &w
		}
		if img.Height != nil {
			h := *img.Height
			out[i].Height = &h
		}
	}
	return out
}

func cloneMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return cloneMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}
