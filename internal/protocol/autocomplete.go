package protocol

import (
	"fmt"
	"strings"
)

// AutocompleteResult is a single suggestion in the select2 response format.
type AutocompleteResult struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// AutocompleteResponse is the select2 response returned by
// json/autocomplete/.
type AutocompleteResponse struct {
	Results    []AutocompleteResult `json:"results"`
	Pagination struct {
		More bool `json:"more"`
	} `json:"pagination"`
}

func (r AutocompleteResponse) Validate() error {
	for i, res := range r.Results {
		if strings.TrimSpace(res.ID) == "" {
			return fmt.Errorf("autocomplete results[%d]: %w id", i, errMissingField)
		}
	}
	return nil
}
