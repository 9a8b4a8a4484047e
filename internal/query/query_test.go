package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_EncodeKeepsOrder(t *testing.T) {
	q := New().
		Add("tagger-02-header", "versioncode").
		Add("tagger-01-header", "name").
		Add("filter01", "cut")

	assert.Equal(t, "tagger-02-header=versioncode&tagger-01-header=name&filter01=cut", q.Encode())
}

func TestQuery_EscapesHashtagsAndSpaces(t *testing.T) {
	q := New(
		Param{Key: "tag", Value: "#activity+name"},
		Param{Key: "header", Value: "Response plan code"},
		Param{Key: "value", Value: "{{#response+plan+name}}"},
	)

	assert.Equal(t,
		"tag=%23activity%2Bname&header=Response+plan+code&value=%7B%7B%23response%2Bplan%2Bname%7D%7D",
		q.Encode(),
	)
}

func TestQuery_NestedURLRoundTrips(t *testing.T) {
	inner := "https://api.example.org/search?planCodes=HAB24&excludeFields=a,b&limit=10"
	out := New().Add("url", inner).URL("https://proxy.example.org/data.csv")

	parsed, err := url.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, inner, parsed.Query().Get("url"))
}

func TestQuery_Keep(t *testing.T) {
	q := New().Add("excludeFields", "locations,governingEntities,targets").Keep(",")

	assert.Equal(t, "excludeFields=locations,governingEntities,targets", q.Encode())
	assert.Equal(t, "excludeFields=locations%2CgoverningEntities%2Ctargets", New(q.Params()...).Encode())
}

func TestQuery_URL(t *testing.T) {
	assert.Equal(t, "https://x.org/a", New().URL("https://x.org/a"))
	assert.Equal(t, "https://x.org/a?b=1", New().Add("b", "1").URL("https://x.org/a"))
	assert.Equal(t, "https://x.org/a?z=0&b=1", New().Add("b", "1").URL("https://x.org/a?z=0"))
}
