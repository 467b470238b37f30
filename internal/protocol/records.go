package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bulktracker/btdash/internal/status"
)

// ID is a record identifier as sent by the BulkTracker JSON API. Older
// deployments send datastore keys as strings, newer ones integer row ids;
// both decode into the same textual form.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
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
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number, got %s", data)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("id must be an integer, got %s", data)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Validator is implemented by records that can check their own required
// fields after decoding.
type Validator interface {
	Validate() error
}

var errMissingField = errors.New("missing required field")

// BuildRecord is one element of json/allbuilds/ and the body of
// json/build/{id}.
type BuildRecord struct {
	BuildID              ID     `json:"BuildID,omitempty"`
	ResultID             ID     `json:"ResultID,omitempty"`
	BuildTs              string `json:"BuildTs,omitempty"`
	Branch               string `json:"Branch"`
	Platform             string `json:"Platform"`
	Compiler             string `json:"Compiler,omitempty"`
	BuildUser            string `json:"BuildUser"`
	ReportURL            string `json:"ReportUrl,omitempty"`
	NumOk                int64  `json:"NumOk"`
	NumPrefailed         int64  `json:"NumPrefailed,omitempty"`
	NumFailed            int64  `json:"NumFailed"`
	NumIndirectFailed    int64  `json:"NumIndirectFailed"`
	NumIndirectPrefailed int64  `json:"NumIndirectPrefailed,omitempty"`
}

// ID returns the identifier used in build links. Some API versions only
// send ResultID for builds.
func (b BuildRecord) ID() ID {
	if b.BuildID != "" {
		return b.BuildID
	}
	return b.ResultID
}

// Summary is the per-status count text shown in build lists.
func (b BuildRecord) Summary() string {
	return fmt.Sprintf("%d failed / %d indirect-failed / %d ok", b.NumFailed, b.NumIndirectFailed, b.NumOk)
}

// ReportBase returns the directory of the bulk build report, i.e. the
// report URL up to its meta/ component.
func (b BuildRecord) ReportBase() string {
	if n := strings.Index(b.ReportURL, "meta/"); n != -1 {
		return b.ReportURL[:n]
	}
	return b.ReportURL
}

func (b BuildRecord) Validate() error {
	if b.ID() == "" {
		return fmt.Errorf("build record: %w BuildID", errMissingField)
	}
	return nil
}

// PackageResultRecord is one element of json/pkgresults/{pkg} and
// json/allpkgresults/{pkg}.
type PackageResultRecord struct {
	PkgName     string      `json:"PkgName"`
	BuildStatus status.Code `json:"BuildStatus"`
	Breaks      int64       `json:"Breaks,omitempty"`
	BuildTs     string      `json:"BuildTs,omitempty"`
	Branch      string      `json:"Branch"`
	Platform    string      `json:"Platform"`
	Compiler    string      `json:"Compiler"`
	BuildUser   string      `json:"BuildUser,omitempty"`
	ResultID    ID          `json:"ResultID,omitempty"`
	BuildID     ID          `json:"BuildID"`
}

func (p PackageResultRecord) Validate() error {
	if strings.TrimSpace(p.PkgName) == "" {
		return fmt.Errorf("package result: %w PkgName", errMissingField)
	}
	return nil
}

// BreakingPackageRecord is one element of json/pkgsbreakingmostothers/{id}.
type BreakingPackageRecord struct {
	PkgPath     string      `json:"PkgPath"`
	PkgName     string      `json:"PkgName"`
	BuildStatus status.Code `json:"BuildStatus"`
	Breaks      int64       `json:"Breaks"`
	ResultID    ID          `json:"ResultID"`
}

func (p BreakingPackageRecord) Validate() error {
	if strings.TrimSpace(p.PkgName) == "" {
		return fmt.Errorf("breaking package: %w PkgName", errMissingField)
	}
	return nil
}
