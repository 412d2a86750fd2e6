package schema

// Party is one assignee or inventor mention with the location printed next
// to it.  Location may be empty.
type Party struct {
	Entity   Fields `json:"entity"`
	Location Fields `json:"location,omitempty"`
}

// USClassification is one US classification triple as parsed.
type USClassification struct {
	USPC      Fields `json:"uspc"`
	MainClass Fields `json:"mainclass"`
	SubClass  Fields `json:"subclass"`
}

// Source is one parsed patent document, the input of the ingestion
// builder.  Every leaf is a flat field mapping decoded by the record
// constructors.
type Source struct {
	Patent            Fields             `json:"patent"`
	Application       Fields             `json:"application,omitempty"`
	Assignees         []Party            `json:"assignees,omitempty"`
	Inventors         []Party            `json:"inventors,omitempty"`
	Lawyers           []Fields           `json:"lawyers,omitempty"`
	USRelations       []Fields           `json:"us_relations,omitempty"`
	USClassifications []USClassification `json:"us_classifications,omitempty"`
	IPCRs             []Fields           `json:"ipcr_classifications,omitempty"`
	Citations         []Fields           `json:"citations,omitempty"`
	OtherReferences   []Fields           `json:"other_references,omitempty"`
}

// Number is the raw patent number ("" when absent).
func (s *Source) Number() string {
	if s == nil {
		return ""
	}
	return s.Patent.String("number")
}

//Personal.AI order the ending
