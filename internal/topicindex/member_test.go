package topicindex

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMember_SortsLikeTid(t *testing.T) {
	tids := []int64{11, 9, 100, 10, 1}
	members := make([]string, len(tids))
	for i, tid := range tids {
		members[i] = member(tid)
	}
	sort.Strings(members)

	got, err := parseIDs(members)
	if err != nil {
		t.Fatalf("parseIDs: %v", err)
	}
	if diff := cmp.Diff([]int64{1, 9, 10, 11, 100}, got); diff != "" {
		t.Errorf("lexicographic member order (-want +got):\n%s", diff)
	}
}
