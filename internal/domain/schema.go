package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
)

// Fields is a loosely typed write payload keyed by wire field name, as decoded
// from a JSON body or a multipart form.
type Fields map[string]any

// Wire field names.
const (
	FieldDate          = "activity_date"
	FieldTime          = "activity_time"
	FieldClientName    = "client_name"
	FieldActivityType  = "activity_type"
	FieldStatus        = "status"
	FieldLocation      = "location"
	FieldContactPerson = "contact_person"
	FieldDescription   = "description"
	FieldDealValue     = "deal_value"
	FieldNextAction    = "next_action"
	FieldAttachments   = "attachments"
)

const maxStringLen = 255

// Mode selects how required fields are treated.
type Mode int

const (
	// ModeCreate requires every required field.
	ModeCreate Mode = iota
	// ModeUpdate treats every field as optional.
	ModeUpdate
)

// Nullable is a tri-state string: omitted, explicitly null, or a value.
type Nullable struct {
	Set   bool
	Value *string
}

// Patch holds the validated subset of fields present in a write request.
type Patch struct {
	Date          *civil.Date
	Time          *civil.Time
	ClientName    *string
	ActivityType  *ActivityType
	Status        *Status
	Description   *string
	Location      Nullable
	ContactPerson Nullable
	DealValue     Nullable
	NextAction    Nullable
	// Attachments replaces the whole list when non-nil.
	Attachments *[]Attachment
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Date == nil && p.Time == nil && p.ClientName == nil && p.ActivityType == nil &&
		p.Status == nil && p.Description == nil && !p.Location.Set && !p.ContactPerson.Set &&
		!p.DealValue.Set && !p.NextAction.Set && p.Attachments == nil
}

// Apply copies present fields onto a.
func (p Patch) Apply(a *Activity) {
	if p.Date != nil {
		a.Date = *p.Date
	}
	if p.Time != nil {
		a.Time = *p.Time
	}
	if p.ClientName != nil {
		a.ClientName = *p.ClientName
	}
	if p.ActivityType != nil {
		a.ActivityType = *p.ActivityType
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Location.Set {
		a.Location = cloneString(p.Location.Value)
	}
	if p.ContactPerson.Set {
		a.ContactPerson = cloneString(p.ContactPerson.Value)
	}
	if p.DealValue.Set {
		a.DealValue = cloneString(p.DealValue.Value)
	}
	if p.NextAction.Set {
		a.NextAction = cloneString(p.NextAction.Value)
	}
	if p.Attachments != nil {
		a.Attachments = append([]Attachment(nil), (*p.Attachments)...)
	}
}

type fieldKind int

const (
	kindDate fieldKind = iota
	kindTime
	kindString
	kindText
	kindEnum
)

type fieldRule struct {
	name     string
	kind     fieldKind
	required bool
	nullable bool
	allowed  []string
	assign   func(p *Patch, value any)
}

var activitySchema = []fieldRule{
	{name: FieldDate, kind: kindDate, required: true, assign: func(p *Patch, v any) {
		d := v.(civil.Date)
		p.Date = &d
	}},
	{name: FieldTime, kind: kindTime, required: true, assign: func(p *Patch, v any) {
		t := v.(civil.Time)
		p.Time = &t
	}},
	{name: FieldClientName, kind: kindString, required: true, assign: func(p *Patch, v any) {
		s := v.(string)
		p.ClientName = &s
	}},
	{name: FieldActivityType, kind: kindEnum, required: true, allowed: enumValues(ActivityTypes), assign: func(p *Patch, v any) {
		t := ActivityType(v.(string))
		p.ActivityType = &t
	}},
	{name: FieldStatus, kind: kindEnum, required: true, allowed: enumValues(Statuses), assign: func(p *Patch, v any) {
		s := Status(v.(string))
		p.Status = &s
	}},
	{name: FieldLocation, kind: kindString, nullable: true, assign: func(p *Patch, v any) {
		p.Location = nullableOf(v)
	}},
	{name: FieldContactPerson, kind: kindString, nullable: true, assign: func(p *Patch, v any) {
		p.ContactPerson = nullableOf(v)
	}},
	{name: FieldDescription, kind: kindText, required: true, assign: func(p *Patch, v any) {
		s := v.(string)
		p.Description = &s
	}},
	{name: FieldDealValue, kind: kindString, nullable: true, assign: func(p *Patch, v any) {
		p.DealValue = nullableOf(v)
	}},
	{name: FieldNextAction, kind: kindString, nullable: true, assign: func(p *Patch, v any) {
		p.NextAction = nullableOf(v)
	}},
}

// ValidateFields checks fields against the activity schema and returns the
// patch built from every present field. All violations are reported together.
func ValidateFields(fields Fields, mode Mode) (Patch, *ValidationError) {
	var patch Patch
	verr := &ValidationError{}

	for _, rule := range activitySchema {
		raw, present := fields[rule.name]
		if !present {
			if mode == ModeCreate && rule.required {
				verr.Add(rule.name, "is required")
			}
			continue
		}

		value, isNull, msg := rule.parse(raw)
		if msg != "" {
			verr.Add(rule.name, msg)
			continue
		}
		if isNull {
			if !rule.nullable {
				verr.Add(rule.name, "is required")
				continue
			}
			rule.assign(&patch, nil)
			continue
		}
		rule.assign(&patch, value)
	}

	if !verr.Empty() {
		return Patch{}, verr
	}
	return patch, nil
}

func (r fieldRule) parse(raw any) (value any, isNull bool, msg string) {
	if raw == nil {
		return nil, true, ""
	}
	s, ok := raw.(string)
	if !ok {
		return nil, false, "must be a string"
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true, ""
	}

	switch r.kind {
	case kindDate:
		d, err := parseDate(s)
		if err != nil {
			return nil, false, "must be a valid date (YYYY-MM-DD)"
		}
		return d, false, ""
	case kindTime:
		t, err := parseTime(s)
		if err != nil {
			return nil, false, "must be a valid time (HH:MM or HH:MM:SS)"
		}
		return t, false, ""
	case kindString:
		if utf8.RuneCountInString(s) > maxStringLen {
			return nil, false, fmt.Sprintf("must not exceed %d characters", maxStringLen)
		}
		return s, false, ""
	case kindEnum:
		for _, allowed := range r.allowed {
			if s == allowed {
				return s, false, ""
			}
		}
		return nil, false, "must be one of: " + strings.Join(r.allowed, ", ")
	default:
		return s, false, ""
	}
}

func parseDate(s string) (civil.Date, error) {
	if d, err := civil.ParseDate(s); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return civil.Date{}, err
	}
	return civil.DateOf(ts), nil
}

func parseTime(s string) (civil.Time, error) {
	if t, err := civil.ParseTime(s); err == nil {
		return t, nil
	}
	ts, err := time.Parse("15:04", s)
	if err != nil {
		return civil.Time{}, err
	}
	return civil.TimeOf(ts), nil
}

func nullableOf(v any) Nullable {
	if v == nil {
		return Nullable{Set: true}
	}
	s := v.(string)
	return Nullable{Set: true, Value: &s}
}

func enumValues[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
