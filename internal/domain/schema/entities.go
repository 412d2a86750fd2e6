package schema

import (
	"strings"

	"github.com/google/uuid"

	"github.com/turtacn/patentdb/internal/domain/resolution"
	"github.com/turtacn/patentdb/pkg/errors"
)

// Plural keys of the keyed canonical containers.
const (
	ManyPatents   = "patents"
	ManyLocations = "locations"
)

// Entity kinds, used for locking, metrics and the disambiguation input.
const (
	KindAssignee = "assignee"
	KindInventor = "inventor"
	KindLawyer   = "lawyer"
	KindLocation = "location"
)

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func incomplete(kind, field, id string) error {
	return errors.New(errors.CodeResolutionIncomplete, "no value for required field "+field).
		WithDetail("kind=" + kind + " id=" + id)
}

// ─────────────────────────────────────────────────────────────────────────────
// Location
// ─────────────────────────────────────────────────────────────────────────────

// RawLocation is a location as printed on a patent.  It is keyed by its
// natural key and shared by every raw assignee and inventor that names it.
type RawLocation struct {
	ID         string  `gorm:"primaryKey;size:256" mapstructure:"id"`
	City       string  `gorm:"size:128" mapstructure:"city"`
	State      string  `gorm:"size:20" mapstructure:"state"`
	Country    string  `gorm:"size:10" mapstructure:"country"`
	LocationID *string `gorm:"size:256;index" mapstructure:"-"`

	Location *Location `gorm:"foreignKey:LocationID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" mapstructure:"-"`
}

func (RawLocation) TableName() string { return "rawlocation" }

// LocationKey is the natural key of a location: "city|state|country",
// lower-cased with surrounding blanks removed.
func LocationKey(city, state, country string) string {
	parts := []string{city, state, country}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, "|")
}

// NewRawLocation decodes a raw location.  The id defaults to LocationKey.
func NewRawLocation(f Fields) (*RawLocation, error) {
	l := &RawLocation{}
	if err := Decode(f, l); err != nil {
		return nil, err
	}
	if l.ID == "" {
		l.ID = LocationKey(l.City, l.State, l.Country)
	}
	return l, nil
}

// Address is the printable form used as a location alias.
func (l *RawLocation) Address() string {
	var parts []string
	for _, p := range []string{l.City, l.State, l.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func (l *RawLocation) Identity() string   { return l.ID }
func (l *RawLocation) CleanID() string    { return deref(l.LocationID) }
func (l *RawLocation) Link(id string)     { l.LocationID = ptr(id) }
func (l *RawLocation) LinkColumn() string { return "location_id" }

func (l *RawLocation) Summarize() map[string]string {
	return map[string]string{"city": l.City, "state": l.State, "country": l.Country}
}

func (l *RawLocation) Single() resolution.Plural {
	return resolution.ListPlural(l.Address())
}

func (l *RawLocation) Related(id string, fields map[string]string) (resolution.Clean, error) {
	c := &Location{}
	if err := Decode(stringFields(fields), c); err != nil {
		return nil, err
	}
	if c.Country == "" {
		return nil, incomplete(KindLocation, "country", id)
	}
	c.ID = id
	c.Aliases = resolution.ListPlural()
	return c, nil
}

func (l *RawLocation) CleanStub(id string) resolution.Clean { return &Location{ID: id} }

// Location is a canonical location.  Aliases collects the address
// spellings of its raw locations.
type Location struct {
	ID      string            `gorm:"primaryKey;size:256" mapstructure:"-"`
	City    string            `gorm:"size:128" mapstructure:"city"`
	State   string            `gorm:"size:20" mapstructure:"state"`
	Country string            `gorm:"size:10" mapstructure:"country"`
	Aliases resolution.Plural `gorm:"serializer:json" mapstructure:"-"`

	RawLocations []*RawLocation `gorm:"foreignKey:LocationID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" mapstructure:"-"`
}

func (Location) TableName() string { return "location" }

func (c *Location) Identity() string         { return c.ID }
func (c *Location) Many() *resolution.Plural { return &c.Aliases }
func (c *Location) Attach(raw resolution.Raw) {
	c.RawLocations = append(c.RawLocations, raw.(*RawLocation))
}

// ─────────────────────────────────────────────────────────────────────────────
// Assignee
// ─────────────────────────────────────────────────────────────────────────────

// RawAssignee is an assignee as printed on one patent.
type RawAssignee struct {
	ID            string  `gorm:"primaryKey;size:36" mapstructure:"uuid"`
	PatentID      string  `gorm:"size:20;index" mapstructure:"patent_id"`
	AssigneeID    *string `gorm:"size:36;index" mapstructure:"-"`
	RawLocationID *string `gorm:"size:256;index" mapstructure:"rawlocation_id"`
	Type          string  `gorm:"size:10" mapstructure:"type"`
	NameFirst     string  `gorm:"size:64" mapstructure:"name_first"`
	NameLast      string  `gorm:"size:64" mapstructure:"name_last"`
	Organization  string  `gorm:"size:256" mapstructure:"organization"`
	Residence     string  `gorm:"size:10" mapstructure:"residence"`
	Nationality   string  `gorm:"size:10" mapstructure:"nationality"`
	Sequence      int     `mapstructure:"sequence"`

	Assignee    *Assignee    `gorm:"foreignKey:AssigneeID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" mapstructure:"-"`
	RawLocation *RawLocation `gorm:"foreignKey:RawLocationID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" mapstructure:"-"`
}

func (RawAssignee) TableName() string { return "rawassignee" }

// NewRawAssignee decodes a raw assignee, assigning a UUID when needed.
func NewRawAssignee(f Fields) (*RawAssignee, error) {
	a := &RawAssignee{}
	if err := Decode(f, a); err != nil {
		return nil, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return a, nil
}

func (a *RawAssignee) Identity() string   { return a.ID }
func (a *RawAssignee) CleanID() string    { return deref(a.AssigneeID) }
func (a *RawAssignee) Link(id string)     { a.AssigneeID = ptr(id) }
func (a *RawAssignee) LinkColumn() string { return "assignee_id" }

func (a *RawAssignee) Summarize() map[string]string {
	return map[string]string{
		"type":         a.Type,
		"name_first":   a.NameFirst,
		"name_last":    a.NameLast,
		"organization": a.Organization,
		"residence":    a.Residence,
		"nationality":  a.Nationality,
	}
}

func (a *RawAssignee) Single() resolution.Plural {
	p := resolution.KeyedPlural(ManyPatents, ManyLocations)
	p.Keyed[ManyPatents] = []string{a.PatentID}
	p.Keyed[ManyLocations] = []string{deref(a.RawLocationID)}
	return p
}

func (a *RawAssignee) Related(id string, fields map[string]string) (resolution.Clean, error) {
	c := &Assignee{}
	if err := Decode(stringFields(fields), c); err != nil {
		return nil, err
	}
	if c.Organization == "" && c.NameLast == "" {
		return nil, incomplete(KindAssignee, "organization or name_last", id)
	}
	c.ID = id
	c.Links = resolution.KeyedPlural(ManyPatents, ManyLocations)
	return c, nil
}

func (a *RawAssignee) CleanStub(id string) resolution.Clean { return &Assignee{ID: id} }

// Assignee is a canonical assignee.
type Assignee struct {
	ID           string            `gorm:"primaryKey;size:36" mapstructure:"-"`
	Type         string            `gorm:"size:10" mapstructure:"type"`
	NameFirst    string            `gorm:"size:64" mapstructure:"name_first"`
	NameLast     string            `gorm:"size:64" mapstructure:"name_last"`
	Organization string            `gorm:"size:256" mapstructure:"organization"`
	Residence    string            `gorm:"size:10" mapstructure:"residence"`
	Nationality  string            `gorm:"size:10" mapstructure:"nationality"`
	Links        resolution.Plural `gorm:"serializer:json" mapstructure:"-"`

	RawAssignees []*RawAssignee `gorm:"foreignKey:AssigneeID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" mapstructure:"-"`
}

func (Assignee) TableName() string { return "assignee" }

func (c *Assignee) Identity() string         { return c.ID }
func (c *Assignee) Many() *resolution.Plural { return &c.Links }
func (c *Assignee) Attach(raw resolution.Raw) {
	c.RawAssignees = append(c.RawAssignees, raw.(*RawAssignee))
}

// ─────────────────────────────────────────────────────────────────────────────
// Inventor
// ─────────────────────────────────────────────────────────────────────────────

// RawInventor is an inventor as printed on one patent.
type RawInventor struct {
	ID            string  `gorm:"primaryKey;size:36" mapstructure:"uuid"`
	PatentID      string  `gorm:"size:20;index" mapstructure:"patent_id"`
	InventorID    *string `gorm:"size:36;index" mapstructure:"-"`
	RawLocationID *string `gorm:"size:256;index" mapstructure:"rawlocation_id"`
	NameFirst     string  `gorm:"size:64" mapstructure:"name_first"`
	NameLast      string  `gorm:"size:64" mapstructure:"name_last"`
	Nationality   string  `gorm:"size:10" mapstructure:"nationality"`
	Sequence      int     `mapstructure:"sequence"`

	Inventor    *Inventor    `gorm:"foreignKey:InventorID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" mapstructure:"-"`
	RawLocation *RawLocation `gorm:"foreignKey:RawLocationID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" mapstructure:"-"`
}

func (RawInventor) TableName() string { return "rawinventor" }

// NewRawInventor decodes a raw inventor, assigning a UUID when needed.
func NewRawInventor(f Fields) (*RawInventor, error) {
	i := &RawInventor{}
	if err := Decode(f, i); err != nil {
		return nil, err
	}
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return i, nil
}

func (i *RawInventor) Identity() string   { return i.ID }
func (i *RawInventor) CleanID() string    { return deref(i.InventorID) }
func (i *RawInventor) Link(id string)     { i.InventorID = ptr(id) }
func (i *RawInventor) LinkColumn() string { return "inventor_id" }

func (i *RawInventor) Summarize() map[string]string {
	return map[string]string{
		"name_first":  i.NameFirst,
		"name_last":   i.NameLast,
		"nationality": i.Nationality,
	}
}

func (i *RawInventor) Single() resolution.Plural {
	p := resolution.KeyedPlural(ManyPatents, ManyLocations)
	p.Keyed[ManyPatents] = []string{i.PatentID}
	p.Keyed[ManyLocations] = []string{deref(i.RawLocationID)}
	return p
}

func (i *RawInventor) Related(id string, fields map[string]string) (resolution.Clean, error) {
	c := &Inventor{}
	if err := Decode(stringFields(fields), c); err != nil {
		return nil, err
	}
	if c.NameLast == "" {
		return nil, incomplete(KindInventor, "name_last", id)
	}
	c.ID = id
	c.Links = resolution.KeyedPlural(ManyPatents, ManyLocations)
	return c, nil
}

func (i *RawInventor) CleanStub(id string) resolution.Clean { return &Inventor{ID: id} }

// Inventor is a canonical inventor.
type Inventor struct {
	ID          string            `gorm:"primaryKey;size:36" mapstructure:"-"`
	NameFirst   string            `gorm:"size:64" mapstructure:"name_first"`
	NameLast    string            `gorm:"size:64" mapstructure:"name_last"`
	Nationality string            `gorm:"size:10" mapstructure:"nationality"`
	Links       resolution.Plural `gorm:"serializer:json" mapstructure:"-"`

	RawInventors []*RawInventor `gorm:"foreignKey:InventorID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" mapstructure:"-"`
}

func (Inventor) TableName() string { return "inventor" }

func (c *Inventor) Identity() string         { return c.ID }
func (c *Inventor) Many() *resolution.Plural { return &c.Links }
func (c *Inventor) Attach(raw resolution.Raw) {
	c.RawInventors = append(c.RawInventors, raw.(*RawInventor))
}

// ─────────────────────────────────────────────────────────────────────────────
// Lawyer
// ─────────────────────────────────────────────────────────────────────────────

// RawLawyer is an attorney or agent as printed on one patent.
type RawLawyer struct {
	ID           string  `gorm:"primaryKey;size:36" mapstructure:"uuid"`
	PatentID     string  `gorm:"size:20;index" mapstructure:"patent_id"`
	LawyerID     *string `gorm:"size:36;index" mapstructure:"-"`
	NameFirst    string  `gorm:"size:64" mapstructure:"name_first"`
	NameLast     string  `gorm:"size:64" mapstructure:"name_last"`
	Organization string  `gorm:"size:256" mapstructure:"organization"`
	Country      string  `gorm:"size:10" mapstructure:"country"`
	Sequence     int     `mapstructure:"sequence"`

	Lawyer *Lawyer `gorm:"foreignKey:LawyerID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" mapstructure:"-"`
}

func (RawLawyer) TableName() string { return "rawlawyer" }

// NewRawLawyer decodes a raw lawyer, assigning a UUID when needed.
func NewRawLawyer(f Fields) (*RawLawyer, error) {
	l := &RawLawyer{}
	if err := Decode(f, l); err != nil {
		return nil, err
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return l, nil
}

func (l *RawLawyer) Identity() string   { return l.ID }
func (l *RawLawyer) CleanID() string    { return deref(l.LawyerID) }
func (l *RawLawyer) Link(id string)     { l.LawyerID = ptr(id) }
func (l *RawLawyer) LinkColumn() string { return "lawyer_id" }

func (l *RawLawyer) Summarize() map[string]string {
	return map[string]string{
		"name_first":   l.NameFirst,
		"name_last":    l.NameLast,
		"organization": l.Organization,
		"country":      l.Country,
	}
}

func (l *RawLawyer) Single() resolution.Plural {
	return resolution.ListPlural(l.PatentID)
}

func (l *RawLawyer) Related(id string, fields map[string]string) (resolution.Clean, error) {
	c := &Lawyer{}
	if err := Decode(stringFields(fields), c); err != nil {
		return nil, err
	}
	if c.Organization == "" && c.NameLast == "" {
		return nil, incomplete(KindLawyer, "organization or name_last", id)
	}
	c.ID = id
	c.Patents = resolution.ListPlural()
	return c, nil
}

func (l *RawLawyer) CleanStub(id string) resolution.Clean { return &Lawyer{ID: id} }

// Lawyer is a canonical lawyer.  Patents lists the patents it appears on.
type Lawyer struct {
	ID           string            `gorm:"primaryKey;size:36" mapstructure:"-"`
	NameFirst    string            `gorm:"size:64" mapstructure:"name_first"`
	NameLast     string            `gorm:"size:64" mapstructure:"name_last"`
	Organization string            `gorm:"size:256" mapstructure:"organization"`
	Country      string            `gorm:"size:10" mapstructure:"country"`
	Patents      resolution.Plural `gorm:"serializer:json" mapstructure:"-"`

	RawLawyers []*RawLawyer `gorm:"foreignKey:LawyerID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" mapstructure:"-"`
}

func (Lawyer) TableName() string { return "lawyer" }

func (c *Lawyer) Identity() string          { return c.ID }
func (c *Lawyer) Many() *resolution.Plural  { return &c.Patents }
func (c *Lawyer) Attach(raw resolution.Raw) { c.RawLawyers = append(c.RawLawyers, raw.(*RawLawyer)) }

// Models lists every table in dependency order, for schema creation.
func Models() []any {
	return []any{
		&Location{}, &Assignee{}, &Inventor{}, &Lawyer{},
		&MainClass{}, &SubClass{},
		&Patent{}, &Application{}, &RawLocation{},
		&RawAssignee{}, &RawInventor{}, &RawLawyer{},
		&USRelDoc{}, &USPC{}, &IPCR{}, &Citation{}, &OtherReference{},
		&TempCitation{}, &TempOtherReference{},
	}
}

var (
	_ resolution.Raw = (*RawAssignee)(nil)
	_ resolution.Raw = (*RawInventor)(nil)
	_ resolution.Raw = (*RawLawyer)(nil)
	_ resolution.Raw = (*RawLocation)(nil)

	_ resolution.Clean = (*Assignee)(nil)
	_ resolution.Clean = (*Inventor)(nil)
	_ resolution.Clean = (*Lawyer)(nil)
	_ resolution.Clean = (*Location)(nil)
)

//Personal.AI order the ending
