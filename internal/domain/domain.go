package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Entity status values shared by quizzes, courses, articles, videos and users.
const (
	StatusActive  = "Active"
	StatusBlocked = "Blocked"
)

// Attempt outcome status values.
const (
	AttemptStatusActive = "Active"
	AttemptStatusPassed = "Passed"
	AttemptStatusFailed = "Failed"
)

// ContentType discriminates what a course module points at.
type ContentType string

const (
	ContentTypeArticle ContentType = "Article"
	ContentTypeQuiz    ContentType = "Quiz"
	ContentTypeVideo   ContentType = "Video"
)

// User is an account holder. PasswordHash never leaves the user service.
type User struct {
	ID              string
	UserID          int64
	Email           string
	PasswordHash    string
	Role            string
	Name            string
	Phone           string
	IsEmailVerified bool
	IsPhoneVerified bool
	ProfileImage    string
	Country         string
	PostalCode      string
	Division        string
	District        string
	Upazila         string
	Status          string
	CreateTime      time.Time
}

// Quiz is a quiz definition. QuizID is the stable public id issued by the
// sequence service, independent of the storage id.
type Quiz struct {
	ID             string
	QuizID         int64
	Title          string
	NumQuestions   int
	TimeLimit      int64 // seconds
	Level          string
	PassGrade      decimal.Decimal // percent, 0-100
	Questions      []Question
	Thumbnail      string
	Instructor     string
	InstructorName string
	Date           time.Time
	Status         string
}

type Question struct {
	QuestionID string   `json:"questionId"`
	Question   string   `json:"question"`
	Options    []string `json:"options"`
	Answer     string   `json:"answer"`
}

// Attempt tracks one user's engagement with one quiz. At most one record
// exists per (QuizID, UserID) pair.
type Attempt struct {
	QuizID      int64
	UserID      string
	UserName    string
	IsEligible  bool
	IsBlocked   bool
	UnblockDate time.Time
	IsStarted   bool
	StartDate   time.Time
	Deadline    time.Time
	IsFinished  bool
	FinishDate  time.Time
	Score       decimal.Decimal
	IsPassed    bool
	Answers     []Answer
	Status      string
	UpdateTime  time.Time
}

type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// GradingResult is derived from a quiz and a finished attempt's answers.
// It is never stored on its own; completion checks recompute it on read.
type GradingResult struct {
	IsPassed       bool
	Score          decimal.Decimal
	PassGrade      decimal.Decimal
	TotalQuestions int
	CorrectAnswers int
	UserAnswers    []Answer
	Questions      []Question
}

// Course groups content into a week-by-module index. CourseIndex is a 2D
// array: outer dimension is the week, inner the modules within that week.
type Course struct {
	ID             string
	CourseID       int64
	Title          string
	NumArticles    int
	NumVideos      int
	NumQuizzes     int
	Instructor     string
	InstructorName string
	NumStudents    int64
	Level          string
	Timeline       int
	CourseIndex    [][]CourseModule
	Thumbnail      string
	Date           time.Time
	Status         string
}

// CourseModule references an article, quiz or video by its public id.
// Title and IsCompleted are resolved per request, not persisted.
type CourseModule struct {
	ContentType ContentType `json:"contentType"`
	ContentID   int64       `json:"contentId"`
	Title       string      `json:"title,omitempty"`
	IsCompleted bool        `json:"isCompleted,omitempty"`
}

// Enrollment tracks one user's engagement with one course.
type Enrollment struct {
	CourseID   int64
	UserID     string
	IsEligible bool
	IsBlocked  bool
	IsEnrolled bool
	EnrollDate time.Time
	IsFinished bool
	FinishDate time.Time
	Progress   []Progress
	Status     string
}

type Progress struct {
	WeekNo      int  `json:"weekNo"`
	ModuleNo    int  `json:"moduleNo"`
	IsCompleted bool `json:"isCompleted"`
}

type Article struct {
	ID         string
	ArticleID  int64
	Title      string
	Content    string
	Thumbnail  string
	Author     string
	AuthorName string
	Date       time.Time
	Status     string
}

type Video struct {
	ID              string
	VideoID         int64
	Title           string
	URL             string
	LengthInSeconds int64
	Lecturer        string
	Author          string
	AuthorName      string
	Description     string
	Tags            []string
	ViewCount       int64
	Thumbnail       string
	PublishedDate   time.Time
	Status          string
}

// File records the metadata of an already-uploaded asset (the upload itself
// happens against the CDN, the backend only keeps the receipt).
type File struct {
	ID               string
	PublicID         string
	URL              string
	SecureURL        string
	ResourceType     string
	Type             string
	Format           string
	Version          string
	Width            int
	Height           int
	Bytes            int64
	MimeType         string
	OriginalFilename string
	Folder           string
	Quality          string
	Tags             []string
	CreateTime       time.Time
}

// LogEntry is a client-reported error payload kept verbatim.
type LogEntry struct {
	ID         string
	Error      json.RawMessage
	CreateTime time.Time
}

// Leaderboard lists the best scores for a quiz in descending order.
type Leaderboard struct {
	QuizID  int64
	Entries []LeaderboardEntry
}

type LeaderboardEntry struct {
	Username string
	Score    float64
}

// DashboardSummary backs the analytics dashboard.
type DashboardSummary struct {
	TotalCourses    int64
	TotalQuizzes    int64
	TotalArticles   int64
	TotalVideos     int64
	EnrolledCourses int64
	AttendedQuizzes int64
	PassedQuizzes   int64
	FailedQuizzes   int64
}
