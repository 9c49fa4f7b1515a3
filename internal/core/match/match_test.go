package match

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestIdentityKey(t *testing.T) {
	assert.Equal(t, "libfoo", IdentityKey("/a/libfoo.so.1.2"))
	assert.Equal(t, "libfoo", IdentityKey("libfoo"))
	assert.Equal(t, "swig", IdentityKey("/opt/bin/swig"))
	assert.Equal(t, "", IdentityKey("/lib/.hidden"))
}

func TestMatchByPrefix_SharedPrefix(t *testing.T) {
	matches := MatchByPrefix(
		map[string]string{"/a/libfoo.1.so": "X"},
		map[string]string{"/b/libfoo.2.so": "Y"},
	)
	want := []DependencyMatch{{Original: "X", Spliced: "Y"}}
	if diff := cmp.Diff(want, matches); diff != "" {
		t.Errorf("MatchByPrefix mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchByPrefix_NoSharedPrefix(t *testing.T) {
	matches := MatchByPrefix(
		map[string]string{"/a/libfoo.1.so": "X"},
		map[string]string{"/b/libbar.1.so": "Y"},
	)
	assert.Empty(t, matches)
}

func TestMatchByPrefix_PartialCoverage(t *testing.T) {
	original := map[string]string{
		"/a/libz.so.1":    "/a/libz.so.1",
		"/a/libpcre.so.1": "/a/libpcre.so.1",
		"/a/libonly.so":   "/a/libonly.so",
	}
	spliced := map[string]string{
		"/b/libpcre.so.2": "/b/libpcre.so.2",
		"/b/libz.so.1":    "/b/libz.so.1",
		"/b/libnew.so":    "/b/libnew.so",
	}

	want := []DependencyMatch{
		{Original: "/a/libpcre.so.1", Spliced: "/b/libpcre.so.2"},
		{Original: "/a/libz.so.1", Spliced: "/b/libz.so.1"},
	}
	if diff := cmp.Diff(want, MatchByPrefix(original, spliced)); diff != "" {
		t.Errorf("MatchByPrefix mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"libonly"}, Unmatched(original, spliced))
}

func TestMatchByPrefix_ManyToMany(t *testing.T) {
	matches := MatchByPrefix(
		map[string]string{"libssl.so.1": "a1", "libssl.so.3": "a3"},
		map[string]string{"libssl.so.3": "b3"},
	)
	assert.Equal(t, []DependencyMatch{{"a1", "b3"}, {"a3", "b3"}}, matches)
}

func TestSharesPrefix(t *testing.T) {
	assert.True(t, SharesPrefix("/x/libpcre.so.2", "/y/libpcre.so.1"))
	assert.True(t, SharesPrefix("/x/libpcre.so.2", "/y/libpcrecpp.so.0"))
	assert.False(t, SharesPrefix("/x/libpcre.so.2", "/y/libz.so"))
}
