package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64     `json:"id"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		Name         string    `json:"name"`
		Surname      string    `json:"surname"`
		Role         Role      `json:"role"`
		Phone        string    `json:"phone"`
		IsActive     bool      `json:"is_active"`
		CreatedAt    time.Time `json:"created_at"`
		UpdatedAt    time.Time `json:"updated_at"`
	}

	Client struct {
		ID         int64        `json:"id"`
		NationalID *string      `json:"national_id"`
		Name       string       `json:"name"`
		Surname    string       `json:"surname"`
		Email      string       `json:"email"`
		Phone      string       `json:"phone"`
		Address    string       `json:"address"`
		BirthDate  *Date        `json:"birth_date"`
		Occupation string       `json:"occupation"`
		Notes      string       `json:"notes"`
		Status     ClientStatus `json:"status"`
		CreatedBy  *int64       `json:"created_by"`
		CreatedAt  time.Time    `json:"created_at"`
		UpdatedAt  time.Time    `json:"updated_at"`

		ActiveCasesCount int   `json:"active_cases_count"`
		TotalDebt        Money `json:"total_debt"`
	}

	Case struct {
		ID            int64      `json:"id"`
		CaseNumber    string     `json:"case_number"`
		ClientID      int64      `json:"client_id"`
		LawyerID      *int64     `json:"lawyer_id"`
		CaseType      CaseType   `json:"case_type"`
		CourtName     string     `json:"court_name"`
		Subject       string     `json:"subject"`
		OpposingParty string     `json:"opposing_party"`
		Status        CaseStatus `json:"status"`
		StartDate     *Date      `json:"start_date"`
		EndDate       *Date      `json:"end_date"`
		NextHearingAt *time.Time `json:"next_hearing_at"`
		CaseValue     *Money     `json:"case_value"`
		Notes         string     `json:"notes"`
		CreatedAt     time.Time  `json:"created_at"`
		UpdatedAt     time.Time  `json:"updated_at"`

		ClientName   string `json:"client_name,omitempty"`
		LawyerName   string `json:"lawyer_name,omitempty"`
		IsActive     bool   `json:"is_active"`
		TotalIncome  Money  `json:"total_income"`
		TotalExpense Money  `json:"total_expense"`
	}

	Transaction struct {
		ID            int64             `json:"id"`
		Type          TransactionType   `json:"transaction_type"`
		Category      string            `json:"category"`
		Amount        Money             `json:"amount"`
		Currency      string            `json:"currency"`
		Date          Date              `json:"date"`
		Description   string            `json:"description"`
		PaymentMethod string            `json:"payment_method"`
		ClientID      *int64            `json:"client_id"`
		CaseID        *int64            `json:"case_id"`
		Status        TransactionStatus `json:"status"`
		ReceiptNo     string            `json:"receipt_no"`
		CreatedAt     time.Time         `json:"created_at"`
		UpdatedAt     time.Time         `json:"updated_at"`
	}

	Installment struct {
		ID            int64             `json:"id"`
		TransactionID int64             `json:"transaction_id"`
		Number        int               `json:"installment_number"`
		Amount        Money             `json:"amount"`
		DueDate       Date              `json:"due_date"`
		PaidDate      *Date             `json:"paid_date"`
		Status        InstallmentStatus `json:"status"`
		Notes         string            `json:"notes"`
		CreatedAt     time.Time         `json:"created_at"`
		UpdatedAt     time.Time         `json:"updated_at"`

		// IsOverdue is derived at read time, never persisted.
		IsOverdue bool `json:"is_overdue"`
	}

	Lead struct {
		ID                int64      `json:"id"`
		Name              string     `json:"name"`
		ContactInfo       string     `json:"contact_info"`
		CaseType          string     `json:"case_type"`
		Description       string     `json:"description"`
		Source            LeadSource `json:"source"`
		Status            LeadStatus `json:"status"`
		EstimatedValue    *Money     `json:"estimated_value"`
		FollowUpDate      *Date      `json:"follow_up_date"`
		ConvertedClientID *int64     `json:"converted_client_id"`
		Notes             string     `json:"notes"`
		CreatedBy         *int64     `json:"created_by"`
		CreatedAt         time.Time  `json:"created_at"`
		UpdatedAt         time.Time  `json:"updated_at"`

		IsConverted   bool `json:"is_converted"`
		NeedsFollowUp bool `json:"needs_follow_up"`
	}

	Document struct {
		ID               int64        `json:"id"`
		Filename         string       `json:"filename"`
		OriginalFilename string       `json:"original_filename"`
		FilePath         string       `json:"-"`
		FileSize         int64        `json:"file_size"`
		MimeType         string       `json:"mime_type"`
		DocumentType     DocumentType `json:"document_type"`
		RelatedTo        string       `json:"related_to"`
		RelatedID        *int64       `json:"related_id"`
		Description      string       `json:"description"`
		UploadedBy       *int64       `json:"uploaded_by"`
		CreatedAt        time.Time    `json:"created_at"`
		UpdatedAt        time.Time    `json:"updated_at"`

		Extension       string `json:"extension"`
		FileSizeDisplay string `json:"file_size_display"`
	}

	CalendarEvent struct {
		ID              int64       `json:"id"`
		Title           string      `json:"title"`
		Description     string      `json:"description"`
		EventType       EventType   `json:"event_type"`
		StartAt         time.Time   `json:"start_datetime"`
		EndAt           *time.Time  `json:"end_datetime"`
		Location        string      `json:"location"`
		RelatedTo       string      `json:"related_to"`
		RelatedID       *int64      `json:"related_id"`
		ReminderMinutes int         `json:"reminder_minutes"`
		Status          EventStatus `json:"status"`
		CreatedBy       *int64      `json:"created_by"`
		RemindedAt      *time.Time  `json:"reminded_at"`
		CreatedAt       time.Time   `json:"created_at"`
		UpdatedAt       time.Time   `json:"updated_at"`

		IsPast          bool `json:"is_past"`
		IsUpcoming      bool `json:"is_upcoming"`
		DurationMinutes *int `json:"duration_minutes"`
	}

	Template struct {
		ID           int64            `json:"id"`
		Name         string           `json:"name"`
		TemplateType TemplateType     `json:"template_type"`
		Content      string           `json:"content"`
		Variables    []string         `json:"variables"`
		Category     TemplateCategory `json:"category"`
		IsPublic     bool             `json:"is_public"`
		CreatedBy    *int64           `json:"created_by"`
		CreatedAt    time.Time        `json:"created_at"`
		UpdatedAt    time.Time        `json:"updated_at"`
	}
)

var (
	ErrInvalidDay    = errors.New("invalid day")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the current UTC calendar day.
func Today() Date {
	return DateOf(time.Now())
}

// Before reports whether d is a strictly earlier calendar day than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Validate rejects negative amounts and amounts at or above MaxAmountCents.
// Zero is allowed in the ledger.
func (m Money) Validate() error {
	if m.Cents < 0 || m.Cents >= MaxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (u User) FullName() string {
	return strings.TrimSpace(u.Name + " " + u.Surname)
}

func (c Client) FullName() string {
	return strings.TrimSpace(c.Name + " " + c.Surname)
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Email) == "" || !strings.Contains(u.Email, "@") {
		return NewValidationError("email", "a valid email is required")
	}
	if strings.TrimSpace(u.Name) == "" {
		return NewValidationError("name", "name is required")
	}
	if strings.TrimSpace(u.Surname) == "" {
		return NewValidationError("surname", "surname is required")
	}
	if !u.Role.Valid() {
		return NewValidationError("role", "invalid role")
	}
	return nil
}

func (c Client) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("name", "name is required")
	}
	if strings.TrimSpace(c.Surname) == "" {
		return NewValidationError("surname", "surname is required")
	}
	if !c.Status.Valid() {
		return NewValidationError("status", "invalid client status")
	}
	if c.NationalID != nil && len(*c.NationalID) > 11 {
		return NewValidationError("national_id", "national id too long (max 11 characters)")
	}
	return nil
}

func (c Case) Validate() error {
	if c.ClientID <= 0 {
		return NewValidationError("client_id", "client is required")
	}
	if !c.CaseType.Valid() {
		return NewValidationError("case_type", "invalid case type")
	}
	if strings.TrimSpace(c.Subject) == "" {
		return NewValidationError("subject", "subject is required")
	}
	if !c.Status.Valid() {
		return NewValidationError("status", "invalid case status")
	}
	if c.CaseValue != nil {
		if err := c.CaseValue.Validate(); err != nil {
			return Invalid("case_value", err)
		}
	}
	if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate) {
		return NewValidationError("end_date", "end date must not be before start date")
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return NewValidationError("transaction_type", "transaction type must be income or expense")
	}
	if !ValidCategory(t.Type, t.Category) {
		return NewValidationError("category", "invalid category for transaction type")
	}
	if err := t.Amount.Validate(); err != nil {
		return Invalid("amount", err)
	}
	if len(t.Currency) != 3 {
		return NewValidationError("currency", "currency must be a 3-letter code")
	}
	if err := t.Date.Validate(); err != nil {
		return Invalid("date", err)
	}
	if t.PaymentMethod != "" && !PaymentMethod(t.PaymentMethod).Valid() {
		return NewValidationError("payment_method", "invalid payment method")
	}
	if !t.Status.Valid() {
		return NewValidationError("status", "invalid transaction status")
	}
	if len(t.Description) > 2000 {
		return NewValidationError("description", "description too long (max 2000 characters)")
	}
	return nil
}

func (l Lead) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return NewValidationError("name", "name is required")
	}
	if !l.Status.Valid() {
		return NewValidationError("status", "invalid lead status")
	}
	if l.Source != "" && !l.Source.Valid() {
		return NewValidationError("source", "invalid lead source")
	}
	if l.EstimatedValue != nil {
		if err := l.EstimatedValue.Validate(); err != nil {
			return Invalid("estimated_value", err)
		}
	}
	return nil
}

func (e CalendarEvent) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return NewValidationError("title", "title is required")
	}
	if !e.EventType.Valid() {
		return NewValidationError("event_type", "invalid event type")
	}
	if e.StartAt.IsZero() {
		return NewValidationError("start_datetime", "start is required")
	}
	if e.EndAt != nil && e.EndAt.Before(e.StartAt) {
		return NewValidationError("end_datetime", "end must not be before start")
	}
	if !e.Status.Valid() {
		return NewValidationError("status", "invalid event status")
	}
	if e.ReminderMinutes < 0 {
		return NewValidationError("reminder_minutes", "reminder must not be negative")
	}
	if e.RelatedTo != "" && e.RelatedTo != RelatedClient && e.RelatedTo != RelatedCase {
		return NewValidationError("related_to", "related_to must be client or case")
	}
	return nil
}

func (t Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return NewValidationError("name", "name is required")
	}
	if !t.TemplateType.Valid() {
		return NewValidationError("template_type", "invalid template type")
	}
	if strings.TrimSpace(t.Content) == "" {
		return NewValidationError("content", "content is required")
	}
	if t.Category != "" && !t.Category.Valid() {
		return NewValidationError("category", "invalid template category")
	}
	return nil
}

// Derive fills the read-time lead flags as of today.
func (l *Lead) Derive(today Date) {
	l.IsConverted = l.Status == LeadConverted && l.ConvertedClientID != nil
	l.NeedsFollowUp = l.FollowUpDate != nil && !today.Before(*l.FollowUpDate) &&
		l.Status != LeadConverted && l.Status != LeadLost
}

// Derive fills the read-time event flags relative to now.
func (e *CalendarEvent) Derive(now time.Time) {
	e.IsPast = e.StartAt.Before(now)
	e.IsUpcoming = e.StartAt.After(now) && e.Status == EventScheduled
	e.DurationMinutes = nil
	if e.EndAt != nil {
		d := int(e.EndAt.Sub(e.StartAt).Minutes())
		e.DurationMinutes = &d
	}
}

// Ext returns the lowercased extension of the original file name, without the dot.
func (d Document) Ext() string {
	i := strings.LastIndexByte(d.OriginalFilename, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(d.OriginalFilename[i+1:])
}

// HumanSize renders a byte count as "12.3 KB".
func HumanSize(n int64) string {
	if n <= 0 {
		return "unknown"
	}
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return strconv.FormatFloat(size, 'f', 1, 64) + " " + unit
		}
		size /= 1024
	}
	return strconv.FormatFloat(size, 'f', 1, 64) + " TB"
}
