package usecase_test

import (
	"context"
	"testing"

	"github.com/runoshun/par/internal/domain"
	"github.com/runoshun/par/internal/testutil"
	"github.com/runoshun/par/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListWorktrees_Execute(t *testing.T) {
	discovery := &testutil.MockDiscoverer{Worktrees: []*domain.Worktree{
		{Name: "api", Path: "/src/api"},
		{Name: "api-feature", Path: "/src/api-feature", IsLinked: true, Branch: "feature"},
		{Name: "web-fix", Path: "/src/web-fix", IsLinked: true, Branch: "fix"},
	}}
	uc := usecase.NewListWorktrees(discovery)

	tests := []struct {
		name  string
		in    usecase.ListWorktreesInput
		want  []string
		total int
	}{
		{"linked only by default", usecase.ListWorktreesInput{}, []string{"api-feature", "web-fix"}, 3},
		{"all includes main checkouts", usecase.ListWorktreesInput{All: true}, []string{"api", "api-feature", "web-fix"}, 3},
		{
			"selection applies before hiding",
			usecase.ListWorktreesInput{Selection: domain.WorktreeSelection{Patterns: []string{"api*"}}},
			[]string{"api-feature"},
			2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := uc.Execute(context.Background(), tt.in)

			require.NoError(t, err)
			var names []string
			for _, wt := range out.Worktrees {
				names = append(names, wt.Name)
			}
			assert.Equal(t, tt.want, names)
			assert.Equal(t, tt.total, out.Total)
		})
	}
}

func TestListWorktrees_Dirs(t *testing.T) {
	discovery := &testutil.MockDiscoverer{}

	_, err := usecase.NewListWorktrees(discovery).Execute(context.Background(), usecase.ListWorktreesInput{Dirs: []string{"/x"}})

	require.NoError(t, err)
	assert.Equal(t, []string{"/x"}, discovery.FromDirsArgs)
	assert.False(t, discovery.DiscoverCall)
}
