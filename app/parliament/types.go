package parliament

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ExternalID is an identifier the archive emits either as a JSON number or a string.
type ExternalID string

func (id *ExternalID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ExternalID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid identifier %s: %w", data, err)
	}
	*id = ExternalID(n.String())
	return nil
}

func (id ExternalID) String() string {
	return string(id)
}

func (id ExternalID) Int64() (int64, error) {
	return strconv.ParseInt(string(id), 10, 64)
}

// ListingEntry is one transcript row of the period listing.
type ListingEntry struct {
	ID    ExternalID `json:"t_id"`
	Date  string     `json:"t_date"`
	Label string     `json:"t_label"`

	// Metadata holds the listing fields kept on the stored transcript.
	Metadata map[string]any `json:"-"`
}

// RawContent is a fetched transcript body.
type RawContent struct {
	HTML     string
	Date     string
	Type     string
	Metadata map[string]any
}

type CommitteeEntry struct {
	ID       ExternalID `json:"A_ns_C_id"`
	TypeID   ExternalID `json:"A_ns_CT_id"`
	Name     string     `json:"A_ns_CL_value"`
	DateFrom string     `json:"A_ns_C_date_F"`
	DateTo   string     `json:"A_ns_CDend"`
}

type BillEntry struct {
	ID    ExternalID `json:"L_Act_id"`
	Title string     `json:"L_ActL_title"`
	Sign  string     `json:"L_Act_sign"`
	Date  string     `json:"L_Act_date"`
	Path  string     `json:"path"`
}

type contentResponse struct {
	Text    *string         `json:"A_Cm_St_text"`
	Date    string          `json:"A_Cm_St_date"`
	Type    string          `json:"A_Cm_St_sub"`
	StenoID ExternalID      `json:"A_Cm_Stid"`
	Acts    json.RawMessage `json:"acts"`
}

var listingMetadataFields = []string{"t_label", "t_date", "t_time", "t_status"}
