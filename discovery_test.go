package cssloader

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// writeCSS creates dir/name with a fixed modification time.
func writeCSS(t *testing.T, dir, name string, mtime int64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("/* test */"), 0o644))
	if mtime > 0 {
		ts := time.Unix(mtime, 0)
		require.NoError(t, os.Chtimes(path, ts, ts))
	}
	return path
}

// observedLogger returns a logger whose entries can be inspected.
func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func filenames(c Classification) map[Audience][]string {
	out := make(map[Audience][]string, len(c))
	for audience, files := range c {
		names := []string{}
		for _, f := range files {
			names = append(names, f.Filename)
		}
		out[audience] = names
	}
	return out
}

func TestDiscover_ClassifiesByAudience(t *testing.T) {
	dir := t.TempDir()
	writeCSS(t, dir, "admin-staff-theme.css", 1700000001)
	writeCSS(t, dir, "portal-client.css", 1700000002)

	result := NewFilesystemDiscovery(dir, nil, nil).Discover()

	want := map[Audience][]string{
		AudienceStaff:  {"admin-staff-theme.css"},
		AudienceClient: {"portal-client.css"},
	}
	if diff := cmp.Diff(want, filenames(result)); diff != "" {
		t.Errorf("classification mismatch (-want +got):\n%s", diff)
	}

	staff := result.Files(AudienceStaff)
	require.Len(t, staff, 1)
	assert.Equal(t, int64(1700000001), staff[0].ModTime)
	assert.True(t, filepath.IsAbs(staff[0].Path))
}

func TestDiscover_MissingDirectory(t *testing.T) {
	result := NewFilesystemDiscovery(filepath.Join(t.TempDir(), "missing"), nil, nil).Discover()

	require.Len(t, result, 2)
	assert.Empty(t, result.Files(AudienceStaff))
	assert.Empty(t, result.Files(AudienceClient))
	assert.NotNil(t, result[AudienceStaff], "every audience key is present")
}

func TestDiscover_UnmatchedFilesDropped(t *testing.T) {
	dir := t.TempDir()
	writeCSS(t, dir, "theme.css", 0)

	logger, logs := observedLogger()
	result := NewFilesystemDiscovery(dir, nil, logger).Discover()

	assert.Empty(t, result.Files(AudienceStaff))
	assert.Empty(t, result.Files(AudienceClient))
	assert.Equal(t, 0, logs.Len(), "unmatched files are not logged")
}

func TestDiscover_FirstMatchWins(t *testing.T) {
	dir := t.TempDir()
	writeCSS(t, dir, "staff-client.css", 0)

	result := NewFilesystemDiscovery(dir, nil, nil).Discover()
	assert.Len(t, result.Files(AudienceStaff), 1)
	assert.Empty(t, result.Files(AudienceClient))

	reversed := []AudiencePattern{
		{Audience: AudienceClient, Pattern: regexp.MustCompile(`(?i)client`)},
		{Audience: AudienceStaff, Pattern: regexp.MustCompile(`(?i)staff`)},
	}
	result = NewFilesystemDiscovery(dir, reversed, nil).Discover()
	assert.Empty(t, result.Files(AudienceStaff))
	assert.Len(t, result.Files(AudienceClient), 1)
}

func TestDiscover_CaseInsensitivePatterns(t *testing.T) {
	dir := t.TempDir()
	writeCSS(t, dir, "STAFF-Theme.css", 0)
	writeCSS(t, dir, "MyClient.css", 0)

	result := NewFilesystemDiscovery(dir, nil, nil).Discover()
	assert.Len(t, result.Files(AudienceStaff), 1)
	assert.Len(t, result.Files(AudienceClient), 1)
}

func TestDiscover_CustomAudiences(t *testing.T) {
	dir := t.TempDir()
	writeCSS(t, dir, "kiosk-theme.css", 0)
	writeCSS(t, dir, "staff.css", 0)

	audiences, err := ParseAudiences([][2]string{{"kiosk", "^kiosk-"}})
	require.NoError(t, err)

	result := NewFilesystemDiscovery(dir, audiences, nil).Discover()
	assert.Equal(t, map[Audience][]string{"kiosk": {"kiosk-theme.css"}}, filenames(result))
}

func TestDiscover_SymlinkEscapeBlocked(t *testing.T) {
	outside := t.TempDir()
	target := writeCSS(t, outside, "evil-staff.css", 0)

	dir := t.TempDir()
	writeCSS(t, dir, "good-staff.css", 0)
	if err := os.Symlink(target, filepath.Join(dir, "linked-staff.css")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	logger, logs := observedLogger()
	d := NewFilesystemDiscovery(dir, nil, logger)
	report := d.Scan()

	staff := report.Classification.Files(AudienceStaff)
	require.Len(t, staff, 1)
	assert.Equal(t, "good-staff.css", staff[0].Filename)

	base, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	for _, f := range staff {
		assert.Contains(t, f.Path, base+string(filepath.Separator))
	}

	assert.Equal(t, 1, logs.FilterMessage("path traversal attempt blocked").Len())
	assert.Contains(t, report.Skipped, SkippedFile{Name: "linked-staff.css", Reason: SkipTraversal})
}

func TestDiscover_SymlinkedBaseDirectory(t *testing.T) {
	real := t.TempDir()
	writeCSS(t, real, "staff.css", 0)

	link := filepath.Join(t.TempDir(), "css")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	result := NewFilesystemDiscovery(link, nil, nil).Discover()
	assert.Len(t, result.Files(AudienceStaff), 1)
}

func TestDiscover_BrokenSymlinkSkippedSilently(t *testing.T) {
	dir := t.TempDir()
	if err := os.Symlink(filepath.Join(dir, "nowhere.css"), filepath.Join(dir, "broken-staff.css")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	writeCSS(t, dir, "ok-staff.css", 0)

	logger, logs := observedLogger()
	result := NewFilesystemDiscovery(dir, nil, logger).Discover()

	assert.Equal(t, map[Audience][]string{
		AudienceStaff:  {"ok-staff.css"},
		AudienceClient: {},
	}, filenames(result))
	assert.Equal(t, 0, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestDiscover_InvalidFilenamesBlocked(t *testing.T) {
	dir := t.TempDir()
	writeCSS(t, dir, "valid-staff.css", 0)
	writeCSS(t, dir, "staff theme.css", 0)
	writeCSS(t, dir, "_staff.css", 0)

	logger, logs := observedLogger()
	report := NewFilesystemDiscovery(dir, nil, logger).Scan()

	staff := report.Classification.Files(AudienceStaff)
	require.Len(t, staff, 1)
	assert.Equal(t, "valid-staff.css", staff[0].Filename)
	assert.Equal(t, 2, logs.FilterMessage("invalid filename blocked").Len())
	assert.Contains(t, report.Skipped, SkippedFile{Name: "staff theme.css", Reason: SkipInvalidName})
}

func TestDiscover_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested-staff.css"), 0o755))
	writeCSS(t, dir, "file-staff.css", 0)

	report := NewFilesystemDiscovery(dir, nil, nil).Scan()
	assert.Len(t, report.Classification.Files(AudienceStaff), 1)
	assert.Contains(t, report.Skipped, SkippedFile{Name: "nested-staff.css", Reason: SkipNotRegular})
}

func TestDiscover_NonRecursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeCSS(t, sub, "deep-staff.css", 0)

	result := NewFilesystemDiscovery(dir, nil, nil).Discover()
	assert.Empty(t, result.Files(AudienceStaff))
}

func TestDiscover_IgnoreFile(t *testing.T) {
	dir := t.TempDir()
	writeCSS(t, dir, "live-staff.css", 0)
	writeCSS(t, dir, "parked-staff.css", 0)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cssignore"), []byte("parked-*.css\n"), 0o644))

	report := NewFilesystemDiscovery(dir, nil, nil).WithIgnoreFile(".cssignore").Scan()

	assert.Equal(t, []string{"live-staff.css"}, filenames(report.Classification)[AudienceStaff])
	assert.Contains(t, report.Skipped, SkippedFile{Name: "parked-staff.css", Reason: SkipIgnored})

	// Without the option the file is picked up again
	result := NewFilesystemDiscovery(dir, nil, nil).Discover()
	assert.Len(t, result.Files(AudienceStaff), 2)
}

func TestDiscover_ReportCountsAndSkips(t *testing.T) {
	dir := t.TempDir()
	writeCSS(t, dir, "a-staff.css", 0)
	writeCSS(t, dir, "theme.css", 0)
	writeCSS(t, dir, "notes.txt", 0)

	report := NewFilesystemDiscovery(dir, nil, nil).Scan()
	assert.Equal(t, dir, report.BaseDirectory)
	assert.Equal(t, 2, report.FilesScanned)
	assert.Equal(t, []SkippedFile{{Name: "theme.css", Reason: SkipUnmatched}}, report.Skipped)
}

func TestDiscover_Accessors(t *testing.T) {
	d := NewFilesystemDiscovery("/srv/css", nil, nil)
	assert.Equal(t, "/srv/css", d.BaseDirectory())
	require.Len(t, d.Audiences(), 2)
	assert.Equal(t, AudienceStaff, d.Audiences()[0].Audience)
}

func TestDiscovery_IsValidFilename(t *testing.T) {
	d := NewFilesystemDiscovery(t.TempDir(), nil, nil)

	valid := []string{
		"staff.css",
		"client.css",
		"my-staff-theme.css",
		"my_client_theme.css",
		"staff-custom_v2.css",
		"staff123.css",
		"theme2024-staff.css",
		"A.css",
	}
	for _, name := range valid {
		assert.True(t, d.IsValidFilename(name), "%q should be valid", name)
	}

	invalid := []string{
		"../../../etc/passwd.css",
		"../../etc/passwd.css",
		"..%2F..%2Fetc/passwd.css",
		"staff\x00.css",
		"<script>alert(1)</script>.css",
		`staff"onclick="alert(1).css`,
		"staff'.css",
		"staff theme.css",
		"-staff.css",
		"_staff.css",
		".staff.css",
		"staff.css.php",
		"staff.CSS",
		"staff",
		"staff.js",
		"stäff.css",
		`staff\.css`,
		"staff.css\n",
		"",
	}
	for _, name := range invalid {
		assert.False(t, d.IsValidFilename(name), "%q should be rejected", name)
	}
}

func TestStaticDiscovery_ReturnsCopy(t *testing.T) {
	d := StaticDiscovery{Result: Classification{
		AudienceStaff: {{Filename: "staff.css"}},
	}}

	first := d.Discover()
	first[AudienceStaff][0].Filename = "mutated.css"

	assert.Equal(t, "staff.css", d.Discover()[AudienceStaff][0].Filename)
}

func TestNewFileInfo(t *testing.T) {
	dir := t.TempDir()
	path := writeCSS(t, dir, "staff.css", 1234567890)

	info, err := NewFileInfo(path)
	require.NoError(t, err)
	assert.Equal(t, FileInfo{Path: path, Filename: "staff.css", ModTime: 1234567890}, info)

	_, err = NewFileInfo(filepath.Join(dir, "missing.css"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestParseAudiences(t *testing.T) {
	_, err := ParseAudiences([][2]string{{"staff", "("}})
	require.Error(t, err)

	_, err = ParseAudiences([][2]string{{"staff", "a"}, {"staff", "b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")

	_, err = ParseAudiences([][2]string{{"", "a"}})
	require.Error(t, err)

	rules, err := ParseAudiences([][2]string{{"client", "(?i)client"}, {"staff", "(?i)staff"}})
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, AudienceClient, rules[0].Audience)
}
