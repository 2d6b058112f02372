package portal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// portalDate decodes the portal's "DD-MM-YYYY" calendar-date strings.
type portalDate struct {
	time.Time
}

const portalDateLayout = "02-01-2006"

func (d *portalDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("portal: decode date: %w", err)
	}
	t, err := time.Parse(portalDateLayout, s)
	if err != nil {
		return fmt.Errorf("portal: decode date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// optionalPortalDate decodes a nullable date field.
type optionalPortalDate struct {
	Time *time.Time
}

func (d *optionalPortalDate) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("portal: decode optional date: %w", err)
	}
	if s == nil {
		return nil
	}
	t, err := time.Parse(portalDateLayout, *s)
	if err != nil {
		return fmt.Errorf("portal: decode optional date %q: %w", *s, err)
	}
	d.Time = &t
	return nil
}

// cents decodes a "5.611,10 €" euro string into an integer number of
// cents, per the exact field-level decoding rule: strip the trailing
// " €", drop every "." thousands separator, drop the "," decimal
// separator (the remaining digits already carry the two-decimal
// fractional part), and parse the signed integer.
type cents int64

func parseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, " €")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("portal: decode currency %q: %w", s, err)
	}
	return v, nil
}

func (c *cents) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("portal: decode currency: %w", err)
	}
	v, err := parseCents(s)
	if err != nil {
		return err
	}
	*c = cents(v)
	return nil
}

type optionalCents struct {
	Value *int64
}

func (c *optionalCents) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("portal: decode optional currency: %w", err)
	}
	if s == nil {
		return nil
	}
	v, err := parseCents(*s)
	if err != nil {
		return err
	}
	c.Value = &v
	return nil
}

// executionDeadline decodes an "N dias" string into the integer N.
type executionDeadline int

func (e *executionDeadline) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("portal: decode execution deadline: %w", err)
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, " dias")
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("portal: decode execution deadline %q: %w", s, err)
	}
	*e = executionDeadline(n)
	return nil
}

// announcementID decodes a signed integer where negative means absent.
type announcementID struct {
	Value *int64
}

func (a *announcementID) UnmarshalJSON(b []byte) error {
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("portal: decode announcement id: %w", err)
	}
	if n >= 0 {
		a.Value = &n
	}
	return nil
}

// cpvPair is one (code, designation) CPV entry after splitting the
// portal's pipe-delimited combined fields.
type cpvPair struct {
	Code        string
	Designation string
}

// decodeCPVs splits the portal's " | "-joined code/designation strings
// into pairs. Both empty yields no entries; mismatched lengths is an
// error.
func decodeCPVs(code, designation string) ([]cpvPair, error) {
	if code == "" && designation == "" {
		return nil, nil
	}

	codes := strings.Split(code, " | ")
	designations := strings.Split(designation, " | ")
	if len(codes) != len(designations) {
		return nil, fmt.Errorf("portal: mismatched number of CPV codes (%d) and designations (%d)", len(codes), len(designations))
	}

	pairs := make([]cpvPair, len(codes))
	for i := range codes {
		pairs[i] = cpvPair{
			Code:        strings.TrimSpace(codes[i]),
			Designation: strings.TrimSpace(designations[i]),
		}
	}
	return pairs, nil
}

// wireEntity is one entity reference as returned for contracting,
// contracted and contestants: always a full object. invitees tolerates
// both this full shape and a bare integer ID, per the open question in
// the design notes: the portal has been observed emitting either shape
// across versions.
type wireEntity struct {
	ID          int64  `json:"id"`
	NIF         string `json:"nif"`
	Description string `json:"description"`
}

// wireInvitee unmarshals either a bare integer ID or a full wireEntity
// object.
type wireInvitee struct {
	wireEntity
}

func (w *wireInvitee) UnmarshalJSON(b []byte) error {
	var id int64
	if err := json.Unmarshal(b, &id); err == nil {
		w.wireEntity = wireEntity{ID: id}
		return nil
	}
	return json.Unmarshal(b, &w.wireEntity)
}
