package migration

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/suite"
	ierr "github.com/subdesk/subdesk/internal/errors"
)

type MigrationSuite struct {
	suite.Suite
}

func TestMigration(t *testing.T) {
	suite.Run(t, new(MigrationSuite))
}

func (s *MigrationSuite) TestLoadEmbedded() {
	migrations, err := Load()
	s.Require().NoError(err)
	s.Require().NotEmpty(migrations)

	s.Equal(1, migrations[0].Version)
	s.Equal("init", migrations[0].Name)
	s.Contains(migrations[0].SQL, "CREATE TABLE IF NOT EXISTS subscriptions")
	s.Len(migrations[0].Checksum, 64)

	for i := 1; i < len(migrations); i++ {
		s.Greater(migrations[i].Version, migrations[i-1].Version)
	}
}

func (s *MigrationSuite) TestLoadFrom() {
	tests := []struct {
		name      string
		files     fstest.MapFS
		wantNames []string
		wantErr   bool
	}{
		{
			name: "sorted by version and ignores other files",
			files: fstest.MapFS{
				"m/0002_second.up.sql":  {Data: []byte("SELECT 2;")},
				"m/0001_first.up.sql":   {Data: []byte("SELECT 1;")},
				"m/0001_first.down.sql": {Data: []byte("SELECT 0;")},
				"m/README.md":           {Data: []byte("notes")},
			},
			wantNames: []string{"first", "second"},
		},
		{
			name: "duplicate version",
			files: fstest.MapFS{
				"m/0001_a.up.sql": {Data: []byte("SELECT 1;")},
				"m/0001_b.up.sql": {Data: []byte("SELECT 1;")},
			},
			wantErr: true,
		},
		{
			name: "missing version prefix",
			files: fstest.MapFS{
				"m/init.up.sql": {Data: []byte("SELECT 1;")},
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			migrations, err := loadFrom(tc.files, "m")
			if tc.wantErr {
				s.Error(err)
				s.True(ierr.IsValidation(err))
				return
			}
			s.Require().NoError(err)
			names := make([]string, 0, len(migrations))
			for _, m := range migrations {
				names = append(names, m.Name)
			}
			s.Equal(tc.wantNames, names)
		})
	}
}

func (s *MigrationSuite) TestPending() {
	all := []Migration{
		{Version: 1, Name: "init", Checksum: "aaa"},
		{Version: 2, Name: "next", Checksum: "bbb"},
	}

	s.Run("skips applied", func() {
		todo, err := pending(all, []AppliedMigration{{Version: 1, Checksum: "aaa"}})
		s.Require().NoError(err)
		s.Require().Len(todo, 1)
		s.Equal(2, todo[0].Version)
	})

	s.Run("nothing applied", func() {
		todo, err := pending(all, nil)
		s.Require().NoError(err)
		s.Len(todo, 2)
	})

	s.Run("edited after apply", func() {
		_, err := pending(all, []AppliedMigration{{Version: 1, Checksum: "changed"}})
		s.Error(err)
		s.True(ierr.IsInvalidOperation(err))
	})
}
