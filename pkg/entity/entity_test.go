package entity

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	guidA = "aaaaaaaa-1111-2222-3333-444444444444"
	guidB = "bbbbbbbb-1111-2222-3333-444444444444"
)

func newTestResolver() *Resolver {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return NewResolver(log)
}

func TestExtractCandidates(t *testing.T) {
	msg := "check the device " + guidA + " against policy " + guidB + " please"

	candidates := ExtractCandidates(msg)
	require.Len(t, candidates, 2)

	assert.Equal(t, guidA, candidates[0].GUID)
	assert.Equal(t, 1, candidates[0].RoleScores["device_id"])
	assert.Contains(t, candidates[0].Window, "device")

	assert.Equal(t, guidB, candidates[1].GUID)
	assert.Equal(t, 1, candidates[1].RoleScores["policy_id"])
}

func TestExtractCandidates_NoGUIDs(t *testing.T) {
	assert.Empty(t, ExtractCandidates("why is my device not compliant"))
}

func TestResolve_SingleCandidateSingleSlot(t *testing.T) {
	r := newTestResolver()

	// Direct assignment needs no trigger words at all.
	res := r.Resolve("look at "+guidA, []string{"device_id"})

	assert.Equal(t, map[string]string{"device_id": guidA}, res.Resolved)
	assert.Empty(t, res.Ambiguities)
}

func TestResolve_TriggerWordsSeparateTwoCandidates(t *testing.T) {
	r := newTestResolver()

	msg := "compare device " + guidA + " and policy " + guidB
	res := r.Resolve(msg, []string{"device_id", "policy_id"})

	assert.Equal(t, map[string]string{
		"device_id": guidA,
		"policy_id": guidB,
	}, res.Resolved)
	assert.Empty(t, res.Ambiguities)
}

func TestResolve_NoTriggerWordsIsAmbiguous(t *testing.T) {
	r := newTestResolver()

	msg := "compare " + guidA + " and " + guidB
	res := r.Resolve(msg, []string{"device_id", "account_id"})

	assert.Empty(t, res.Resolved)
	require.Len(t, res.Ambiguities, 2)
	assert.Equal(t, "device_id", res.Ambiguities[0].Slot)
	assert.Len(t, res.Ambiguities[0].Candidates, 2)
}

func TestResolve_NearTieIsAmbiguous(t *testing.T) {
	r := newTestResolver()

	// Both candidates sit inside a window containing "device"; neither leads
	// by the required margin.
	msg := "device ids " + guidA + " " + guidB
	res := r.Resolve(msg, []string{"device_id"})

	assert.Empty(t, res.Resolved)
	require.Len(t, res.Ambiguities, 1)
}

func TestResolve_NeverAssignsSameCandidateTwice(t *testing.T) {
	r := newTestResolver()

	// guidA is adjacent to "device" and inside a "machine"-bearing window, so
	// it would win both slots if reuse were allowed.
	msg := "the machine device " + guidA + " versus " + guidB
	res := r.Resolve(msg, []string{"device_id", "account_id"})

	seen := make(map[string]string)
	for slot, guid := range res.Resolved {
		prev, dup := seen[guid]
		require.False(t, dup, "%s assigned to both %s and %s", guid, prev, slot)
		seen[guid] = slot
	}
}

func TestResolve_NoSlotsOrNoCandidates(t *testing.T) {
	r := newTestResolver()

	res := r.Resolve("no identifiers here", []string{"device_id"})
	assert.Empty(t, res.Resolved)
	assert.Empty(t, res.Ambiguities)

	res = r.Resolve("device "+guidA, nil)
	assert.Empty(t, res.Resolved)
	assert.Len(t, res.Candidates, 1)
}

func TestResolve_AdjacencyBonusBreaksWindowTie(t *testing.T) {
	r := newTestResolver()

	// Both GUIDs share a window containing the account trigger words, but
	// only guidB has the slot root word immediately before it.
	msg := "in tenant " + guidA + " account " + guidB
	res := r.Resolve(msg, []string{"account_id"})

	require.Contains(t, res.Resolved, "account_id")
	assert.Equal(t, guidB, res.Resolved["account_id"])
}
