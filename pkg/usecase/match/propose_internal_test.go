package match

import (
	"testing"

	"github.com/m-mizutani/gt"
)

func TestParseProposal(t *testing.T) {
	proposals, ranking := parseProposal(`{"queries": [{"api": "search_pubmed", "query": "x"}], "ranking": "1. NCT001"}`)
	gt.A(t, proposals).Length(1)
	gt.Equal(t, proposals[0].Name, "search_pubmed")
	gt.Equal(t, ranking, "1. NCT001")
}

func TestParseProposalFreeText(t *testing.T) {
	proposals, ranking := parseProposal("NCT001 looks best to me.")
	gt.A(t, proposals).Length(0)
	gt.Equal(t, ranking, "NCT001 looks best to me.")
}

func TestParseProposalEmpty(t *testing.T) {
	proposals, ranking := parseProposal("")
	gt.A(t, proposals).Length(0)
	gt.Equal(t, ranking, "No ranking provided.")
}

func TestParseProposalBlankRanking(t *testing.T) {
	proposals, ranking := parseProposal(`{"queries": [], "ranking": "  "}`)
	gt.A(t, proposals).Length(0)
	gt.Equal(t, ranking, "No ranking provided.")
}

func TestExtractJSON(t *testing.T) {
	testCases := map[string]string{
		`{"a": 1}`:                      `{"a": 1}`,
		"```json\n{\"a\": 1}\n```":      `{"a": 1}`,
		"```\n{\"a\": 1}\n```":          `{"a": 1}`,
		"  \n```json\n{\"a\": 1}\n``` ": `{"a": 1}`,
	}
	for input, want := range testCases {
		gt.Equal(t, extractJSON(input), want)
	}
}
