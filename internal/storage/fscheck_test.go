package storage

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckLocalFilesystem(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dbPath := filepath.Join(root, "nested", "dir", "state.db")

	tests := []struct {
		name    string
		fsType  string
		detErr  error
		wantErr string
	}{
		{name: "local", fsType: "apfs"},
		{name: "linux magic hex", fsType: "0x6969"},
		{name: "nfs", fsType: "nfs", wantErr: `network filesystem "nfs"`},
		{name: "uppercase smbfs", fsType: "SMBFS", wantErr: "state.path"},
		{name: "unsupported platform", detErr: errUnsupportedPlatform},
		{name: "detector failure", detErr: errors.New("boom"), wantErr: "boom"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var inspected string
			err := checkLocalFilesystemWith(dbPath, func(p string) (string, error) {
				inspected = p
				return tt.fsType, tt.detErr
			})

			if inspected != root {
				t.Errorf("inspected %q, want nearest existing dir %q", inspected, root)
			}
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
