package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItemID(t *testing.T) {
	owner, repo, n, err := ParseItemID(ItemID("org", "repo", 42))
	require.NoError(t, err)
	assert.Equal(t, "org", owner)
	assert.Equal(t, "repo", repo)
	assert.Equal(t, 42, n)

	for _, bad := range []string{"", "org/repo", "org#1", "/repo#1", "org/repo#x", "org/repo#0", "a/b/c#1"} {
		_, _, _, err := ParseItemID(bad)
		assert.Error(t, err, bad)
	}
}

func TestPageContext_EnablesHiding(t *testing.T) {
	assert.True(t, PageContext{IsSupportedSite: true, Section: SectionIssues}.EnablesHiding())
	assert.False(t, PageContext{IsSupportedSite: false, Section: SectionIssues}.EnablesHiding())
	assert.False(t, PageContext{IsSupportedSite: true, Section: SectionCode}.EnablesHiding())
	var none *OwnerPath
	assert.Equal(t, "", none.String())
}
