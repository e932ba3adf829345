package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/librarian-be/types"
)

func evidenceSession(text string) *CitationSession {
	session := NewCitationSession()
	session.AssignMarker(types.Chunk{
		ID:         "c1",
		DocumentID: "d1",
		Page:       5,
		Text:       text,
	}, 0.9)
	return session
}

func TestVerifySupportedClaim(t *testing.T) {
	session := evidenceSession(
		"The mitochondria is the powerhouse of the cell, producing ATP through oxidative phosphorylation.")
	verifier := NewVerifyService(0.3)

	answer := "Mitochondria generate ATP through oxidative phosphorylation [1]."
	summary := verifier.Verify(answer, session)

	assert.Equal(t, 1, summary.SupportedCount)
	assert.Equal(t, 0, summary.UnsupportedCount)
	assert.Empty(t, summary.Flagged)

	marker, ok := session.Marker(1)
	require.True(t, ok)
	assert.Equal(t, types.VerificationSupported, marker.Status)
}

func TestVerifyFlagsUnsupportedClaim(t *testing.T) {
	session := evidenceSession(
		"The mitochondria is the powerhouse of the cell, producing ATP through oxidative phosphorylation.")
	verifier := NewVerifyService(0.3)

	answer := "The first moon landing happened during summer 1969 [1]."
	summary := verifier.Verify(answer, session)

	assert.Equal(t, 0, summary.SupportedCount)
	assert.Equal(t, 1, summary.UnsupportedCount)
	require.Len(t, summary.Flagged, 1)
	assert.Contains(t, summary.Flagged[0].Text, "moon landing")
	assert.Equal(t, []int{1}, summary.Flagged[0].Markers)

	marker, ok := session.Marker(1)
	require.True(t, ok)
	assert.Equal(t, types.VerificationUnsupported, marker.Status)
}

func TestVerifyInventedMarkerIsFlagged(t *testing.T) {
	session := evidenceSession("Some evidence about glaciers melting in the arctic region.")
	verifier := NewVerifyService(0.3)

	answer := "Glaciers are melting in the arctic region [7]."
	summary := verifier.Verify(answer, session)

	// Marker 7 was never assigned; the sentence citing it is flagged and the
	// session's own marker was never exercised by the answer.
	require.Len(t, summary.Flagged, 1)
	assert.Equal(t, []int{7}, summary.Flagged[0].Markers)
	assert.Equal(t, 1, summary.NotCheckedCount)
	assert.Equal(t, 0, summary.SupportedCount)

	marker, ok := session.Marker(1)
	require.True(t, ok)
	assert.Equal(t, types.VerificationNotChecked, marker.Status)
}

func TestVerifyUncitedSentencesSkipped(t *testing.T) {
	session := evidenceSession("Photosynthesis converts sunlight into chemical energy in plants.")
	verifier := NewVerifyService(0.3)

	answer := "Here is some framing prose without citations. " +
		"Photosynthesis converts sunlight into chemical energy [1]."
	summary := verifier.Verify(answer, session)

	assert.Equal(t, 1, summary.SupportedCount)
	assert.Empty(t, summary.Flagged)
}

func TestVerifyShortClaimIsInconclusive(t *testing.T) {
	session := evidenceSession("Water boils at one hundred degrees celsius at sea level pressure.")
	verifier := NewVerifyService(0.3)

	// Two content words is below the minimum needed to judge; inconclusive
	// checks are treated as unsupported, never upgraded.
	summary := verifier.Verify("Water boils [1].", session)

	assert.Equal(t, 1, summary.UnsupportedCount)
	require.Len(t, summary.Flagged, 1)
}

func TestExtractMarkersDistinctInOrder(t *testing.T) {
	markers := extractMarkers("Claim [2]. Another [1][2]. Last [3].")
	assert.Equal(t, []int{2, 1, 3}, markers)
}

func TestSplitSentencesKeepsTrailingMarkers(t *testing.T) {
	spans := splitSentences("First claim. [1] Second claim [2]. Tail without period")

	require.Len(t, spans, 3)
	assert.Equal(t, "First claim. [1]", spans[0].text)
	assert.Equal(t, "Second claim [2].", spans[1].text)
	assert.Equal(t, "Tail without period", spans[2].text)
}
