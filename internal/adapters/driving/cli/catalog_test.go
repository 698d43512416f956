package cli

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestCatalogCmd_Test(t *testing.T) {
	ts := setupTestServices(t)
	ts.catalog.status = "Connected to catalog (3 libraries)"

	out, err := runCommand(t, "", "catalog", "test")

	require.NoError(t, err)
	assert.Equal(t, "Connected to catalog (3 libraries)\n", out)
}

func TestCatalogCmd_TestError(t *testing.T) {
	ts := setupTestServices(t)
	ts.catalog.err = fmt.Errorf("%w: set catalog.base_url", domain.ErrCatalogNotConfigured)

	_, err := runCommand(t, "", "catalog", "test")

	assert.ErrorIs(t, err, domain.ErrCatalogNotConfigured)
}

func TestCatalogCmd_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantPage int
		wantOut  string
		wantErr  error
	}{
		{
			name:     "explicit page",
			args:     []string{"Core.pdf", "42"},
			wantPage: 42,
			wantOut:  "https://komga.test/book/b1\n",
		},
		{
			name:     "default page",
			args:     []string{"Core.pdf"},
			wantPage: 1,
			wantOut:  "https://komga.test/book/b1\n",
		},
		{
			name:    "bad page",
			args:    []string{"Core.pdf", "zero"},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "negative page",
			args:    []string{"Core.pdf", "-3"},
			wantErr: domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupTestServices(t)
			ts.catalog.links = map[string]string{"Core.pdf": "https://komga.test/book/b1"}

			args := append([]string{"catalog", "resolve", "--"}, tt.args...)
			out, err := runCommand(t, "", args...)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOut, out)
			assert.Equal(t, tt.wantPage, ts.catalog.lastPage)
		})
	}
}

func TestCatalogCmd_ResolveMiss(t *testing.T) {
	setupTestServices(t)

	_, err := runCommand(t, "", "catalog", "resolve", "Missing.pdf", "3")

	require.Error(t, err)
	assert.Equal(t, "no catalog link for Missing.pdf page 3", err.Error())
}

func TestCatalogCmd_ServiceNotConfigured(t *testing.T) {
	setupTestServices(t)
	catalogService = nil

	_, err := runCommand(t, "", "catalog", "test")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog service not configured")
}
