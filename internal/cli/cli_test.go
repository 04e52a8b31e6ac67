package cli_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/term"

	"github.com/rshade/nutricount/internal/auth"
	"github.com/rshade/nutricount/internal/cli"
	"github.com/rshade/nutricount/internal/config"
)

// setupCLITest isolates config and data under a temp NUTRICOUNT_HOME.
func setupCLITest(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("NUTRICOUNT_HOME", home)
	t.Setenv("NUTRICOUNT_LOG_LEVEL", "error")
	t.Setenv("NUTRICOUNT_PIN", "")
	t.Setenv("NUTRICOUNT_TRACE_ID", "")
	config.ResetGlobalConfigForTest()
	t.Cleanup(config.ResetGlobalConfigForTest)
	return home
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := cli.NewRootCmd("test")
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, "", args...)
	require.NoError(t, err, "nutricount %s: %s", strings.Join(args, " "), out)
	return out
}

type todayJSON struct {
	Progress struct {
		Intake struct {
			Kcal    float64 `json:"kcal"`
			Protein float64 `json:"protein"`
		} `json:"intake"`
		Status string `json:"status"`
	} `json:"progress"`
	Entries []struct {
		Key    string  `json:"key"`
		Kind   string  `json:"type"`
		Name   string  `json:"name"`
		Grams  float64 `json:"grams"`
		Staged bool    `json:"staged"`
		Known  bool    `json:"known"`
	} `json:"entries"`
}

func today(t *testing.T) todayJSON {
	t.Helper()
	var v todayJSON
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "today", "--output", "json")), &v))
	return v
}

func seedReference(t *testing.T) {
	t.Helper()
	mustRun(t, "food", "add", "rice", "--kcal", "130", "--protein", "2.7", "--carbs", "28", "--fat", "0.3")
	mustRun(t, "standard", "add", "yogurt", "--kcal", "60", "--protein", "10")
	mustRun(t, "tupper", "add", "stew", "--kcal", "100", "--protein", "8")
	mustRun(t, "tupper-type", "add", "glass", "--weight", "300")
}

func TestRootCmd_HasCommands(t *testing.T) {
	setupCLITest(t)
	cmd := cli.NewRootCmd("test")

	for _, name := range []string{
		"today", "stage", "unstage", "consume", "remove", "reset", "close", "history",
		"track", "food", "standard", "tupper", "tupper-type", "goal", "pin", "config",
	} {
		assert.NotNil(t, findSubcommandLocal(cmd, name), "missing command %s", name)
	}
}

func TestToday_Empty(t *testing.T) {
	setupCLITest(t)

	out := mustRun(t, "today")
	assert.Contains(t, out, "TODAY")
	assert.Contains(t, out, "Nothing eaten yet.")

	v := today(t)
	assert.Zero(t, v.Progress.Intake.Kcal)
	assert.Empty(t, v.Entries)
}

func TestStageConsumeFlow(t *testing.T) {
	setupCLITest(t)
	seedReference(t)

	out := mustRun(t, "stage", "food", "rice", "200")
	assert.Contains(t, out, "Staged")
	mustRun(t, "stage", "standard", "Yogurt")

	v := today(t)
	require.Len(t, v.Entries, 2)
	assert.True(t, v.Entries[0].Staged)
	assert.Equal(t, "rice", v.Entries[0].Name)
	assert.InDelta(t, 100, v.Entries[1].Grams, 1e-9, "standard food defaults to one portion")
	assert.InDelta(t, 260+60, v.Progress.Intake.Kcal, 1e-9, "extras count as soon as they are staged")

	out = mustRun(t, "consume", "--tupper", "stew", "--type", "glass", "--gross", "500")
	assert.Contains(t, out, "Consumed")

	v = today(t)
	require.Len(t, v.Entries, 3)
	for _, e := range v.Entries {
		assert.False(t, e.Staged)
	}
	assert.Equal(t, "tupper", v.Entries[0].Kind, "container first, then the committed extras")
	assert.InDelta(t, 200, v.Entries[0].Grams, 1e-9)
	assert.InDelta(t, 520, v.Progress.Intake.Kcal, 1e-9)

	mustRun(t, "remove", v.Entries[0].Key)
	v = today(t)
	assert.Len(t, v.Entries, 2)
	assert.InDelta(t, 320, v.Progress.Intake.Kcal, 1e-9)
}

func TestStage_Validation(t *testing.T) {
	setupCLITest(t)
	seedReference(t)

	_, err := runCLI(t, "", "stage", "food", "rice")
	require.ErrorIs(t, err, cli.ErrGramsRequired)

	_, err = runCLI(t, "", "stage", "tupper", "stew", "100")
	require.Error(t, err)

	_, err = runCLI(t, "", "stage", "food", "bread", "100")
	require.Error(t, err)

	for _, grams := range []string{"0", "NaN", "Inf"} {
		out := mustRun(t, "stage", "food", "rice", grams)
		assert.Contains(t, out, "Nothing staged", grams)
	}
	assert.Empty(t, today(t).Entries)
}

func TestUnstage(t *testing.T) {
	setupCLITest(t)
	seedReference(t)
	mustRun(t, "stage", "food", "rice", "100")

	out := mustRun(t, "unstage", "missing")
	assert.Contains(t, out, "No extra with key missing")

	v := today(t)
	require.Len(t, v.Entries, 1)
	out = mustRun(t, "unstage", v.Entries[0].Key)
	assert.Contains(t, out, "Removed extra")

	v = today(t)
	assert.Empty(t, v.Entries)
	assert.Zero(t, v.Progress.Intake.Kcal)
}

func TestConsume_NothingToDo(t *testing.T) {
	setupCLITest(t)
	seedReference(t)
	mustRun(t, "stage", "food", "rice", "100")

	out := mustRun(t, "consume")
	assert.Contains(t, out, "Nothing to consume")

	out = mustRun(t, "consume", "--tupper", "stew")
	assert.Contains(t, out, "Nothing to consume", "a gross weight is required")

	out = mustRun(t, "consume", "--tupper", "stew", "--gross", "NaN")
	assert.Contains(t, out, "Nothing to consume")

	v := today(t)
	require.Len(t, v.Entries, 1)
	assert.True(t, v.Entries[0].Staged)

	_, err := runCLI(t, "", "consume", "--tupper", "soup", "--gross", "100")
	require.Error(t, err)
}

func TestReset(t *testing.T) {
	setupCLITest(t)
	seedReference(t)
	mustRun(t, "stage", "food", "rice", "100")

	out, err := runCLI(t, "n\n", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Reset cancelled")
	assert.Len(t, today(t).Entries, 1)

	out, err = runCLI(t, "y\n", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "has been reset")
	assert.Empty(t, today(t).Entries)
}

type dayJSON struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	Consumed []struct {
		Name string `json:"name"`
	} `json:"consumedList"`
}

func history(t *testing.T) []dayJSON {
	t.Helper()
	var days []dayJSON
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "history", "list", "--output", "json")), &days))
	return days
}

func TestCloseAndHistory(t *testing.T) {
	setupCLITest(t)
	seedReference(t)
	mustRun(t, "stage", "food", "rice", "100")
	mustRun(t, "consume", "--tupper", "stew", "--gross", "100")

	out := mustRun(t, "close", "--date", "2025-03-03", "--keep")
	assert.Contains(t, out, "Archived 2025-03-03")
	assert.Len(t, today(t).Entries, 2, "--keep leaves today untouched")

	mustRun(t, "close", "--date", "2025-03-04")
	assert.Empty(t, today(t).Entries)

	days := history(t)
	require.Len(t, days, 2)
	assert.Equal(t, "2025-03-04", days[0].Date)
	assert.Equal(t, "2025-03-03", days[1].Date)
	require.Len(t, days[1].Consumed, 2)
	assert.Equal(t, "stew", days[1].Consumed[0].Name)
	assert.Equal(t, "rice", days[1].Consumed[1].Name)

	out = mustRun(t, "history", "show", days[1].ID)
	assert.Contains(t, out, "Monday")
	assert.Contains(t, out, "rice")

	mustRun(t, "history", "rename", days[1].ID, "2025-03-05")
	days = history(t)
	assert.Equal(t, "2025-03-05", days[0].Date)

	out, err := runCLI(t, "no\n", "history", "delete", days[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Delete cancelled")

	mustRun(t, "history", "delete", days[0].ID, "--force")
	assert.Len(t, history(t), 1)
}

func TestClose_InvalidDate(t *testing.T) {
	setupCLITest(t)
	_, err := runCLI(t, "", "close", "--date", "03/03/2025")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid date")
}

func TestHistory_List_Empty(t *testing.T) {
	setupCLITest(t)
	out := mustRun(t, "history", "list")
	assert.Contains(t, out, "No archived days.")
}

func TestReference_ListAndRemove(t *testing.T) {
	setupCLITest(t)
	seedReference(t)

	out := mustRun(t, "food", "list")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "rice")

	out = mustRun(t, "tupper-type", "list")
	assert.Contains(t, out, "TARE")
	assert.Contains(t, out, "glass")

	mustRun(t, "stage", "food", "rice", "100")
	mustRun(t, "food", "rm", "rice")
	assert.Contains(t, mustRun(t, "food", "list"), "No entries.")

	v := today(t)
	require.Len(t, v.Entries, 1, "deleting a food keeps the ledger entry")
	assert.Equal(t, "unknown", v.Entries[0].Name)
	assert.False(t, v.Entries[0].Known)

	_, err := runCLI(t, "", "food", "add", "bad", "--kcal", "-1")
	require.ErrorIs(t, err, cli.ErrNegativeValue)
}

func TestGoal(t *testing.T) {
	setupCLITest(t)

	var goal struct {
		Kcal    float64 `json:"kcal"`
		Protein float64 `json:"protein"`
	}
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "goal", "show", "--output", "json")), &goal))
	assert.InDelta(t, 2200, goal.Kcal, 1e-9)

	mustRun(t, "goal", "set", "--kcal", "1800")
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "goal", "show", "--output", "json")), &goal))
	assert.InDelta(t, 1800, goal.Kcal, 1e-9)
	assert.InDelta(t, 150, goal.Protein, 1e-9, "unset macros keep their value")
}

func TestOutput_InvalidFormat(t *testing.T) {
	setupCLITest(t)
	_, err := runCLI(t, "", "today", "--output", "xml")
	require.ErrorIs(t, err, config.ErrInvalidFormat)
}

func TestSQLiteBackend(t *testing.T) {
	setupCLITest(t)
	dbPath := filepath.Join(t.TempDir(), "day.db")

	mustRun(t, "--store", "sqlite", "--store-path", dbPath, "food", "add", "rice", "--kcal", "130")
	mustRun(t, "--store", "sqlite", "--store-path", dbPath, "stage", "food", "rice", "100")
	out := mustRun(t, "--store", "sqlite", "--store-path", dbPath, "today", "--output", "json")

	var v todayJSON
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.InDelta(t, 130, v.Progress.Intake.Kcal, 1e-9)

	_, err := os.Stat(dbPath)
	require.NoError(t, err)
}

func TestStore_InvalidBackend(t *testing.T) {
	setupCLITest(t)
	_, err := runCLI(t, "", "--store", "mongo", "today")
	require.ErrorIs(t, err, config.ErrInvalidBackend)
}

func TestPinGate(t *testing.T) {
	setupCLITest(t)
	mustRun(t, "config", "init")
	mustRun(t, "config", "set", "auth.enabled", "true")
	config.ResetGlobalConfigForTest()

	_, err := runCLI(t, "", "today")
	require.ErrorIs(t, err, cli.ErrPINRequired)

	t.Setenv("NUTRICOUNT_PIN", "1234")
	_, err = runCLI(t, "", "today")
	require.ErrorIs(t, err, auth.ErrPINNotConfigured)

	t.Setenv("NUTRICOUNT_PIN", "")
	_, err = runCLI(t, "12\n", "pin", "set")
	require.ErrorIs(t, err, auth.ErrPINFormat)

	out, err := runCLI(t, "1234\n", "pin", "set")
	require.NoError(t, err)
	assert.Contains(t, out, "PIN saved")

	t.Setenv("NUTRICOUNT_PIN", "1234")
	mustRun(t, "today")

	t.Setenv("NUTRICOUNT_PIN", "9999")
	_, err = runCLI(t, "", "today")
	require.ErrorIs(t, err, auth.ErrInvalidPIN)

	out = mustRun(t, "pin", "status")
	assert.Contains(t, out, "PIN configured: true")
	assert.Contains(t, out, "Failed attempts: 1")

	// Changing the PIN requires the current one.
	_, err = runCLI(t, "5678\n", "pin", "set")
	require.ErrorIs(t, err, auth.ErrInvalidPIN)
}

func TestTrack_RequiresTerminal(t *testing.T) {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		t.Skip("stdout is a terminal")
	}
	setupCLITest(t)
	_, err := runCLI(t, "", "track")
	require.ErrorIs(t, err, cli.ErrNotInteractive)
}
