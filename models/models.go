// crushnote/models/models.go
package models

import (
	"time"

	"github.com/Ali-GR/CrushNoteApp/config"
)

// --- Core Data Models ---

type School struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	CreatedAt time.Time `json:"created_at"`
}

type Profile struct {
	ID                 string    `json:"id"`
	Nickname           string    `json:"nickname"`
	SchoolID           string    `json:"school_id"`
	Strikes            int       `json:"strikes"`
	PostsCount         int       `json:"posts_count"`
	LikesReceivedCount int       `json:"likes_received_count"`
	CreatedAt          time.Time `json:"created_at"`
}

// Banned reports whether the profile has reached the strike limit.
// Ban state is always derived from the counter, never stored.
func (p *Profile) Banned() bool {
	return p.Strikes >= config.StrikeBanLimit
}

type Post struct {
	ID            string    `json:"id"`
	AuthorID      string    `json:"author_id"`
	SchoolID      string    `json:"school_id"`
	Content       string    `json:"content"`
	CommentsCount int       `json:"comments_count"`
	LikesCount    int       `json:"likes_count"`
	CreatedAt     time.Time `json:"created_at"`
	LikedByMe     bool      `json:"liked_by_me"`
}

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Reporting & Moderation Models ---

// TargetType identifies what kind of content a report points at.
type TargetType string

const (
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
)

func (t TargetType) Valid() bool {
	return t == TargetPost || t == TargetComment
}

// Report reasons mirror the options offered in the client.
var ReportReasons = map[string]bool{
	"insult":        true,
	"harassment":    true,
	"inappropriate": true,
	"other":         true,
}

type Report struct {
	ID         string     `json:"id"`
	TargetID   string     `json:"target_id"`
	TargetType TargetType `json:"target_type"`
	ReporterID string     `json:"reporter_id"`
	Reason     string     `json:"reason"`
	CreatedAt  time.Time  `json:"created_at"`

	// Joined target content for the moderator dashboard.
	Content  string `json:"content,omitempty"`
	AuthorID string `json:"author_id,omitempty"`
}

// OutcomeAction is the terminal state of a moderation pass.
type OutcomeAction string

const (
	ActionPending   OutcomeAction = "pending"
	ActionDeleted   OutcomeAction = "deleted"
	ActionDismissed OutcomeAction = "dismissed"
)

// ReportOutcome is the tagged result of evaluating a report. Exactly one
// of the optional fields is meaningful per action: ReportCount for
// pending, Strikes for deleted.
type ReportOutcome struct {
	Action      OutcomeAction `json:"action"`
	ReportCount int           `json:"report_count,omitempty"`
	Strikes     int           `json:"strikes,omitempty"`
}

func Pending(count int) ReportOutcome {
	return ReportOutcome{Action: ActionPending, ReportCount: count}
}

func Deleted(strikes int) ReportOutcome {
	return ReportOutcome{Action: ActionDeleted, Strikes: strikes}
}

func Dismissed() ReportOutcome {
	return ReportOutcome{Action: ActionDismissed}
}

type ModAction struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	TargetID  string    `json:"target_id,omitempty"`
	Details   string    `json:"details,omitempty"`
}
