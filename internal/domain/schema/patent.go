package schema

import (
	"time"

	"github.com/google/uuid"
)

// Patent is the aggregate root.  Its primary key is the patent number.
// Deleting a patent cascades to every row below except the shared location
// and class tables and the staging tables.
type Patent struct {
	ID        string     `gorm:"primaryKey;size:20" mapstructure:"id"`
	Type      string     `gorm:"size:20" mapstructure:"type"`
	Number    string     `gorm:"size:64;uniqueIndex" mapstructure:"number"`
	Country   string     `gorm:"size:20" mapstructure:"country"`
	Date      *time.Time `mapstructure:"date"`
	Abstract  string     `gorm:"type:text" mapstructure:"abstract"`
	Title     string     `gorm:"type:text" mapstructure:"title"`
	Kind      string     `gorm:"size:10" mapstructure:"kind"`
	NumClaims int        `mapstructure:"num_claims"`

	Application     *Application     `gorm:"foreignKey:PatentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" mapstructure:"-"`
	RawAssignees    []RawAssignee    `gorm:"foreignKey:PatentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" mapstructure:"-"`
	RawInventors    []RawInventor    `gorm:"foreignKey:PatentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" mapstructure:"-"`
	RawLawyers      []RawLawyer      `gorm:"foreignKey:PatentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" mapstructure:"-"`
	USRelDocs       []USRelDoc       `gorm:"foreignKey:PatentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" mapstructure:"-"`
	Classes         []USPC           `gorm:"foreignKey:PatentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" mapstructure:"-"`
	IPCRs           []IPCR           `gorm:"foreignKey:PatentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" mapstructure:"-"`
	Citations       []Citation       `gorm:"foreignKey:PatentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" mapstructure:"-"`
	OtherReferences []OtherReference `gorm:"foreignKey:PatentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" mapstructure:"-"`
}

func (Patent) TableName() string { return "patent" }

// NewPatent decodes a patent.  The id defaults to the number.
func NewPatent(f Fields) (*Patent, error) {
	p := &Patent{}
	if err := Decode(f, p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = p.Number
	}
	return p, nil
}

// Application is the filing a patent was granted on.
type Application struct {
	ID       string     `gorm:"primaryKey;size:36" mapstructure:"id"`
	PatentID string     `gorm:"size:20;index" mapstructure:"patent_id"`
	Type     string     `gorm:"size:20" mapstructure:"type"`
	Number   string     `gorm:"size:64" mapstructure:"number"`
	Country  string     `gorm:"size:20" mapstructure:"country"`
	Date     *time.Time `mapstructure:"date"`
}

func (Application) TableName() string { return "application" }

// NewApplication decodes an application.  The id defaults to the
// application number, or a fresh UUID when there is none.
func NewApplication(f Fields) (*Application, error) {
	a := &Application{}
	if err := Decode(f, a); err != nil {
		return nil, err
	}
	if a.ID == "" {
		a.ID = a.Number
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return a, nil
}

// USRelDoc is a US related document (continuation, division, ...).
type USRelDoc struct {
	ID       string     `gorm:"primaryKey;size:36" mapstructure:"uuid"`
	PatentID string     `gorm:"size:20;index" mapstructure:"patent_id"`
	DocType  string     `gorm:"size:64" mapstructure:"doctype"`
	RelType  string     `gorm:"size:64" mapstructure:"relationship"`
	RelDocNo string     `gorm:"size:64" mapstructure:"reldocno"`
	Country  string     `gorm:"size:20" mapstructure:"country"`
	Date     *time.Time `mapstructure:"date"`
	Status   string     `gorm:"size:20" mapstructure:"status"`
	Kind     string     `gorm:"size:10" mapstructure:"kind"`
	Sequence int        `mapstructure:"sequence"`
}

func (USRelDoc) TableName() string { return "usreldoc" }

// MainClass is a USPC main class, shared across patents.
type MainClass struct {
	ID    string `gorm:"primaryKey;size:20" mapstructure:"id"`
	Title string `gorm:"size:256" mapstructure:"title"`
	Text  string `gorm:"size:256" mapstructure:"text"`
}

func (MainClass) TableName() string { return "mainclass" }

// SubClass is a USPC subclass, shared across patents.
type SubClass struct {
	ID    string `gorm:"primaryKey;size:20" mapstructure:"id"`
	Title string `gorm:"size:256" mapstructure:"title"`
	Text  string `gorm:"size:256" mapstructure:"text"`
}

func (SubClass) TableName() string { return "subclass" }

// USPC links a patent to one main class and subclass.
type USPC struct {
	ID          string  `gorm:"primaryKey;size:36" mapstructure:"uuid"`
	PatentID    string  `gorm:"size:20;index" mapstructure:"patent_id"`
	MainClassID *string `gorm:"size:20;index" mapstructure:"mainclass_id"`
	SubClassID  *string `gorm:"size:20;index" mapstructure:"subclass_id"`
	Sequence    int     `mapstructure:"sequence"`

	MainClass *MainClass `gorm:"foreignKey:MainClassID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" mapstructure:"-"`
	SubClass  *SubClass  `gorm:"foreignKey:SubClassID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" mapstructure:"-"`
}

func (USPC) TableName() string { return "uspc" }

// IPCR is an International Patent Classification entry.
type IPCR struct {
	ID                       string     `gorm:"primaryKey;size:36" mapstructure:"uuid"`
	PatentID                 string     `gorm:"size:20;index" mapstructure:"patent_id"`
	ClassificationLevel      string     `gorm:"size:20" mapstructure:"classification_level"`
	Section                  string     `gorm:"size:20" mapstructure:"section"`
	IPCClass                 string     `gorm:"column:ipc_class;size:20" mapstructure:"class"`
	Subclass                 string     `gorm:"size:20" mapstructure:"subclass"`
	MainGroup                string     `gorm:"size:20" mapstructure:"main_group"`
	Subgroup                 string     `gorm:"size:20" mapstructure:"subgroup"`
	SymbolPosition           string     `gorm:"size:20" mapstructure:"symbol_position"`
	ClassificationValue      string     `gorm:"size:20" mapstructure:"classification_value"`
	ClassificationStatus     string     `gorm:"size:20" mapstructure:"classification_status"`
	ClassificationDataSource string     `gorm:"size:20" mapstructure:"classification_data_source"`
	ActionDate               *time.Time `mapstructure:"action_date"`
	IPCVersionIndicator      *time.Time `mapstructure:"ipc_version_indicator"`
	Sequence                 int        `mapstructure:"sequence"`
}

func (IPCR) TableName() string { return "ipcr" }

// Citation is a patent-to-patent citation kept with the aggregate.
type Citation struct {
	ID         string     `gorm:"primaryKey;size:36" mapstructure:"uuid"`
	PatentID   string     `gorm:"size:20;index" mapstructure:"patent_id"`
	CitationID string     `gorm:"size:20;index" mapstructure:"citation_id"`
	Date       *time.Time `mapstructure:"date"`
	Name       string     `gorm:"size:64" mapstructure:"name"`
	Kind       string     `gorm:"size:10" mapstructure:"kind"`
	Country    string     `gorm:"size:10" mapstructure:"country"`
	Category   string     `gorm:"size:20" mapstructure:"category"`
	Sequence   int        `mapstructure:"sequence"`
}

func (Citation) TableName() string { return "citation" }

// OtherReference is a free-text non-patent citation kept with the aggregate.
type OtherReference struct {
	ID       string `gorm:"primaryKey;size:36" mapstructure:"uuid"`
	PatentID string `gorm:"size:20;index" mapstructure:"patent_id"`
	Text     string `gorm:"type:text" mapstructure:"text"`
	Sequence int    `mapstructure:"sequence"`
}

func (OtherReference) TableName() string { return "otherreference" }

// TempCitation is a staged Citation.  It has no foreign key so staging
// never depends on the aggregate; PatentID is stamped by the builder.
type TempCitation struct {
	ID         string     `gorm:"primaryKey;size:36" mapstructure:"uuid" json:"uuid"`
	PatentID   string     `gorm:"size:20;index" mapstructure:"patent_id" json:"patent_id"`
	CitationID string     `gorm:"size:20" mapstructure:"citation_id" json:"citation_id,omitempty"`
	Date       *time.Time `mapstructure:"date" json:"date,omitempty"`
	Name       string     `gorm:"size:64" mapstructure:"name" json:"name,omitempty"`
	Kind       string     `gorm:"size:10" mapstructure:"kind" json:"kind,omitempty"`
	Country    string     `gorm:"size:10" mapstructure:"country" json:"country,omitempty"`
	Category   string     `gorm:"size:20" mapstructure:"category" json:"category,omitempty"`
	Sequence   int        `mapstructure:"sequence" json:"sequence"`
}

func (TempCitation) TableName() string { return "temporary_citation" }

// TempOtherReference is a staged OtherReference.
type TempOtherReference struct {
	ID       string `gorm:"primaryKey;size:36" mapstructure:"uuid" json:"uuid"`
	PatentID string `gorm:"size:20;index" mapstructure:"patent_id" json:"patent_id"`
	Text     string `gorm:"type:text" mapstructure:"text" json:"text"`
	Sequence int    `mapstructure:"sequence" json:"sequence"`
}

func (TempOtherReference) TableName() string { return "temporary_otherreference" }

// decodeWithID decodes f into rec and assigns a fresh UUID when the input
// carried none.
func decodeWithID(f Fields, rec any, id *string) error {
	if err := Decode(f, rec); err != nil {
		return err
	}
	if *id == "" {
		*id = uuid.NewString()
	}
	return nil
}

// NewUSRelDoc decodes a related document.
func NewUSRelDoc(f Fields) (*USRelDoc, error) {
	r := &USRelDoc{}
	return r, decodeWithID(f, r, &r.ID)
}

// NewMainClass decodes a main class.
func NewMainClass(f Fields) (*MainClass, error) {
	m := &MainClass{}
	return m, Decode(f, m)
}

// NewSubClass decodes a subclass.
func NewSubClass(f Fields) (*SubClass, error) {
	s := &SubClass{}
	return s, Decode(f, s)
}

// NewUSPC decodes a US classification link.
func NewUSPC(f Fields) (*USPC, error) {
	u := &USPC{}
	return u, decodeWithID(f, u, &u.ID)
}

// NewIPCR decodes an IPC classification.
func NewIPCR(f Fields) (*IPCR, error) {
	i := &IPCR{}
	return i, decodeWithID(f, i, &i.ID)
}

// NewCitation decodes a citation.
func NewCitation(f Fields) (*Citation, error) {
	c := &Citation{}
	return c, decodeWithID(f, c, &c.ID)
}

// NewOtherReference decodes an other reference.
func NewOtherReference(f Fields) (*OtherReference, error) {
	o := &OtherReference{}
	return o, decodeWithID(f, o, &o.ID)
}

// NewTempCitation decodes a staged citation.
func NewTempCitation(f Fields) (*TempCitation, error) {
	c := &TempCitation{}
	return c, decodeWithID(f, c, &c.ID)
}

// NewTempOtherReference decodes a staged other reference.
func NewTempOtherReference(f Fields) (*TempOtherReference, error) {
	o := &TempOtherReference{}
	return o, decodeWithID(f, o, &o.ID)
}

//Personal.AI order the ending
