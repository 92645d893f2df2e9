package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"careerkit/internal/common"
	"careerkit/internal/config"
	"careerkit/internal/document"
	apperrors "careerkit/internal/errors"
	"careerkit/internal/render"
	"careerkit/internal/types"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readParagraphs(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	paragraphs, err := document.ExtractBytes(data)
	require.NoError(t, err)
	return paragraphs
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App: config.AppConfig{
			DefaultFormat:    "docx",
			SupportedFormats: []string{"docx", "pdf"},
			OutputDir:        t.TempDir(),
			PrintTimeout:     time.Second,
		},
	}
}

func writeDocx(t *testing.T, text string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, document.NewDOCXWriter().Write(context.Background(), &buf, render.RenderPlain(text)))
	path := filepath.Join(t.TempDir(), "resume.docx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
	return path
}

func execute(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := Execute(context.Background(), cfg, apperrors.NewDiscardLogger())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, testConfig(t), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "careerkit version dev (commit unknown")

	out, err = execute(t, testConfig(t), "--verbose", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "careerkit version dev")
	verbose = false
}

func TestFormatCommand(t *testing.T) {
	cfg := testConfig(t)
	resume := writeDocx(t, "JANE DOE\nEXPERIENCE\nAcme Corp\tJan 2020 - Present")
	target := filepath.Join(t.TempDir(), "formatted.docx")

	_, err := execute(t, cfg, "format", resume, "-o", target)
	require.NoError(t, err)

	paragraphs := readParagraphs(t, target)
	assert.Contains(t, paragraphs, "JANE DOE")

	_, err = execute(t, cfg, "format", resume, "--format", "odt")
	assert.ErrorContains(t, err, "unsupported output format 'odt'")
	formatFlags = documentFlags{}
}

func TestGenerationCommandsRequireAPIKey(t *testing.T) {
	cfg := testConfig(t)
	resume := writeDocx(t, "JANE DOE")

	_, err := execute(t, cfg, "customize", resume, resume)
	assert.ErrorContains(t, err, "API key is required")

	_, err = execute(t, cfg, "cover-letter", resume, resume, "--title", "Engineer", "--company", "Acme")
	assert.ErrorContains(t, err, "Missing required field: user_name")

	_, err = execute(t, cfg, "cover-letter", resume, resume, "--name", "Jane", "--title", "Engineer", "--company", "Acme")
	assert.ErrorContains(t, err, "API key is required")

	coverLetterReq = types.CoverLetterRequest{}
	coverLetterFlags = documentFlags{}
	customizeFlags = documentFlags{}
}

func TestClassifyFile(t *testing.T) {
	fp := common.NewFileProcessor(apperrors.NewDiscardLogger())

	lines, err := classifyFile(fp, writeDocx(t, "JANE DOE\nEXPERIENCE"))
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "JANE DOE", lines[0].Text)

	txt := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0600))
	_, err = classifyFile(fp, txt)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnsupportedFormat))

	_, err = classifyFile(fp, filepath.Join(t.TempDir(), "absent.docx"))
	assert.ErrorContains(t, err, "File not found")
}

func TestClassifyCommandJSON(t *testing.T) {
	out, err := execute(t, testConfig(t), "classify", writeDocx(t, "JANE DOE"), "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"source": "resume.docx"`)
	assert.Contains(t, out, `"text": "JANE DOE"`)
	classifyFormat = "text"
}

func TestApplyServeFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "serve"}
	cmd.Flags().StringP("port", "p", "", "")
	cmd.Flags().String("host", "", "")
	cmd.Flags().String("tls-mode", "", "")
	cmd.Flags().String("cert-file", "", "")
	cmd.Flags().String("key-file", "", "")
	cmd.Flags().String("ca-file", "", "")
	require.NoError(t, cmd.Flags().Parse([]string{"--port", "9090", "--tls-mode", "server"}))

	cfg := config.ServerConfig{Host: "0.0.0.0", Port: "8080", TLS: config.TLSConfig{Mode: "disabled", CertFile: "keep.pem"}}
	applyServeFlags(cmd, &cfg)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "server", cfg.TLS.Mode)
	assert.Equal(t, "keep.pem", cfg.TLS.CertFile)
}

func TestDocumentFlagsResolve(t *testing.T) {
	cfg := testConfig(t)

	var flags documentFlags
	require.NoError(t, flags.resolve(cfg))
	assert.Equal(t, "docx", flags.DocumentFormat)
	assert.Equal(t, cfg.App.OutputDir, flags.OutputDir)
	assert.Equal(t, "text", flags.OutputFormat)

	flags = documentFlags{CommandConfig: common.CommandConfig{DocumentFormat: "pdf", OutputDir: "elsewhere"}}
	require.NoError(t, flags.resolve(cfg))
	assert.Equal(t, "pdf", flags.DocumentFormat)
	assert.Equal(t, "elsewhere", flags.OutputDir)

	flags = documentFlags{CommandConfig: common.CommandConfig{OutputFormat: "yaml"}}
	assert.ErrorContains(t, flags.resolve(cfg), "unsupported summary format 'yaml'")
}
