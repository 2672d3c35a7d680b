package store

import (
	"bytes"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// Message is a contact-form submission.
type Message struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Subject     string     `json:"subject"`
	Message     string     `json:"message"`
	Date        time.Time  `json:"date"`
	Read        bool       `json:"read"`
	Replied     bool       `json:"replied"`
	RepliedDate *time.Time `json:"repliedDate,omitempty"`
}

// Status is the publication state of a project.
type Status string

const (
	StatusLive  Status = "live"
	StatusDraft Status = "draft"
)

// Valid reports whether s is live or draft.
func (s Status) Valid() bool {
	return s == StatusLive || s == StatusDraft
}

// Percent is a 0..100 gauge. It decodes from JSON numbers or numeric strings;
// anything else decodes to 0.
type Percent int

// ClampPercent bounds v to 0..100.
func ClampPercent(v int) Percent {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return Percent(v)
}

// ParsePercent reads a form or JSON value the way a lenient integer parse
// would: leading sign and digits count, the rest is ignored.
func ParsePercent(s string) Percent {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil || errors.Is(err, strconv.ErrRange) {
		return clampFloat(f)
	}
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && (s[end] == '-' || s[end] == '+')) {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if errors.Is(err, strconv.ErrRange) {
		if s[0] == '-' {
			return 0
		}
		return 100
	}
	if err != nil {
		return 0
	}
	return ClampPercent(n)
}

// clampFloat bounds f before it is narrowed to an int.
func clampFloat(f float64) Percent {
	switch {
	case math.IsNaN(f) || f < 0:
		return 0
	case f > 100:
		return 100
	}
	return Percent(int(f))
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Percent) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = 0
		return nil
	}
	*p = ParsePercent(strings.Trim(string(b), `"`))
	return nil
}

// StatusValues are the three gauges shown on a project's detail view.
type StatusValues struct {
	Stability   Percent `json:"stability"`
	Range       Percent `json:"range"`
	Reliability Percent `json:"reliability"`
}

// Project is a portfolio entry.
type Project struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Mission      string       `json:"mission"`
	MissionBrief string       `json:"missionBrief"`
	Architecture string       `json:"architecture"`
	Stack        []string     `json:"stack"`
	Images       []string     `json:"images"`
	LinkedInLink string       `json:"linkedInLink"`
	ReportFile   string       `json:"reportFile"`
	StatusValues StatusValues `json:"statusValues"`
	Status       Status       `json:"status"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// ProjectInput carries a create or partial update. Nil fields are left alone
// on update and take their zero value on create. Gauges may arrive flat or
// nested under statusValues; flat values win.
type ProjectInput struct {
	Name         *string       `json:"name"`
	Mission      *string       `json:"mission"`
	MissionBrief *string       `json:"missionBrief"`
	Architecture *string       `json:"architecture"`
	Stack        *[]string     `json:"stack"`
	Images       *[]string     `json:"images"`
	LinkedInLink *string       `json:"linkedInLink"`
	ReportFile   *string       `json:"reportFile"`
	Stability    *Percent      `json:"stability"`
	Range        *Percent      `json:"range"`
	Reliability  *Percent      `json:"reliability"`
	StatusValues *StatusValues `json:"statusValues"`
	Status       *Status       `json:"status"`
}

// apply copies the supplied fields of in onto p.
func (in ProjectInput) apply(p *Project) {
	setString(&p.Name, in.Name)
	setString(&p.Mission, in.Mission)
	setString(&p.MissionBrief, in.MissionBrief)
	setString(&p.Architecture, in.Architecture)
	setString(&p.LinkedInLink, in.LinkedInLink)
	setString(&p.ReportFile, in.ReportFile)
	if in.Stack != nil {
		p.Stack = cleanTags(*in.Stack)
	}
	if in.Images != nil {
		p.Images = append([]string(nil), (*in.Images)...)
	}
	if in.StatusValues != nil {
		p.StatusValues = StatusValues{
			Stability:   ClampPercent(int(in.StatusValues.Stability)),
			Range:       ClampPercent(int(in.StatusValues.Range)),
			Reliability: ClampPercent(int(in.StatusValues.Reliability)),
		}
	}
	if in.Stability != nil {
		p.StatusValues.Stability = ClampPercent(int(*in.Stability))
	}
	if in.Range != nil {
		p.StatusValues.Range = ClampPercent(int(*in.Range))
	}
	if in.Reliability != nil {
		p.StatusValues.Reliability = ClampPercent(int(*in.Reliability))
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// cleanTags trims tags and drops empty ones.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Skill is a named proficiency bar on the home page.
type Skill struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Percentage Percent `json:"percentage"`
}

// SkillInput carries a create or partial update of a skill.
type SkillInput struct {
	Name       *string  `json:"name"`
	Percentage *Percent `json:"percentage"`
}

// DefaultSkills seed an empty skills table.
var DefaultSkills = []Skill{
	{Name: "Electronics Design", Percentage: 90},
	{Name: "Robotics & Automation", Percentage: 85},
	{Name: "Embedded Systems", Percentage: 88},
	{Name: "Microcontroller Programming", Percentage: 87},
	{Name: "Circuit Design", Percentage: 92},
	{Name: "Space Technology", Percentage: 80},
}

// Visit is one tracked page view.
type Visit struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}
