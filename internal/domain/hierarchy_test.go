package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func snapshot(id, levelID string, pathLevelTwoID string) *HierarchyGroup {
	g := &HierarchyGroup{ID: id, Name: "group-" + id, LevelID: levelID}
	if pathLevelTwoID != "" {
		g.Path.LevelTwo = &HierarchyGroupRef{ID: pathLevelTwoID, Name: "path-" + pathLevelTwoID}
	}
	return g
}

func TestInHierarchy(t *testing.T) {
	tests := []struct {
		name              string
		recordingGroupID  string
		recordingSnapshot *HierarchyGroup
		operatorGroupID   string
		operatorSnapshot  *HierarchyGroup
		want              bool
	}{
		{
			name:             "same group",
			recordingGroupID: "g1", recordingSnapshot: snapshot("g1", "3", ""),
			operatorGroupID: "g1", operatorSnapshot: snapshot("g1", "3", ""),
			want: true,
		},
		{
			name:             "manager over subordinate via path",
			recordingGroupID: "g-child", recordingSnapshot: snapshot("g-child", "3", "g-parent"),
			operatorGroupID: "g-parent", operatorSnapshot: snapshot("g-parent", "2", ""),
			want: true,
		},
		{
			name:             "unrelated groups",
			recordingGroupID: "g1", recordingSnapshot: snapshot("g1", "3", "g-other"),
			operatorGroupID: "g2", operatorSnapshot: snapshot("g2", "2", ""),
			want: false,
		},
		{
			name:             "subordinate cannot see manager",
			recordingGroupID: "g-parent", recordingSnapshot: snapshot("g-parent", "2", ""),
			operatorGroupID: "g-child", operatorSnapshot: snapshot("g-child", "3", "g-parent"),
			want: false,
		},
		{
			name:             "both without groups",
			recordingGroupID: "", recordingSnapshot: nil,
			operatorGroupID: "", operatorSnapshot: nil,
			want: false,
		},
		{
			name:             "recording without snapshot",
			recordingGroupID: "g1", recordingSnapshot: nil,
			operatorGroupID: "g2", operatorSnapshot: snapshot("g2", "2", ""),
			want: false,
		},
		{
			name:             "operator level missing in recording path",
			recordingGroupID: "g1", recordingSnapshot: snapshot("g1", "3", ""),
			operatorGroupID: "g2", operatorSnapshot: snapshot("g2", "5", ""),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InHierarchy(tt.recordingGroupID, tt.recordingSnapshot, tt.operatorGroupID, tt.operatorSnapshot)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHierarchyPathLevel(t *testing.T) {
	p := HierarchyPath{
		LevelOne:  &HierarchyGroupRef{ID: "a"},
		LevelFive: &HierarchyGroupRef{ID: "e"},
	}

	assert.Equal(t, "a", p.Level("1").ID)
	assert.Nil(t, p.Level("2"))
	assert.Equal(t, "e", p.Level("5").ID)
	assert.Nil(t, p.Level("6"))
	assert.Nil(t, p.Level(""))
}
