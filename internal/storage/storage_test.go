package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestGuildSettingsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	defaults := GuildSettings{LogChannel: "fallback"}
	settings, err := store.GetGuildSettings(ctx, "g1", defaults)
	if err != nil {
		t.Fatalf("get defaults: %v", err)
	}
	if settings.LogChannel != "fallback" || settings.GuildID != "g1" {
		t.Fatalf("unexpected defaults: %+v", settings)
	}

	settings.LogChannel = "log"
	settings.WelcomeChannel = "welcome"
	settings.WelcomeRoles = []string{"r1", "r2"}
	if err := store.UpsertGuildSettings(ctx, settings); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.GetGuildSettings(ctx, "g1", defaults)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LogChannel != "log" || got.WelcomeChannel != "welcome" || len(got.WelcomeRoles) != 2 {
		t.Fatalf("unexpected settings: %+v", got)
	}
}

func TestInfractionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inf := Infraction{
		ID:        "inf-1",
		GuildID:   "g1",
		UserID:    "u1",
		ModID:     "m1",
		ChannelID: "c1",
		Reason:    "spam",
		Punishment: &Punishment{
			Penalty:       PenaltyTempBan,
			Duration:      2 * time.Hour,
			HumanDuration: "2h",
		},
		CreatedAt: time.Unix(100, 0),
		UpdatedAt: time.Unix(100, 0),
	}
	if err := store.CreateInfraction(ctx, inf); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.GetInfraction(ctx, "inf-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Punishment == nil || got.Punishment.Penalty != PenaltyTempBan || got.Punishment.Duration != 2*time.Hour {
		t.Fatalf("unexpected punishment: %+v", got.Punishment)
	}
	if got.Punishment.HumanDuration != "2h" || got.Reason != "spam" {
		t.Fatalf("unexpected infraction: %+v", got)
	}

	if err := store.AddHistoricalPunishment(ctx, HistoricalPunishment{
		InfractionID: "inf-1",
		Penalty:      PenaltyTempBan,
		Duration:     2 * time.Hour,
		ChangedByID:  "m2",
		HistoricalAt: time.Unix(200, 0),
	}); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if err := store.UpdateInfractionPunishment(ctx, "inf-1", &Punishment{Penalty: PenaltyBan}, false); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err = store.GetInfraction(ctx, "inf-1")
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Punishment == nil || got.Punishment.Penalty != PenaltyBan || got.Punishment.Duration != 0 {
		t.Fatalf("unexpected updated punishment: %+v", got.Punishment)
	}
	history, err := store.ListHistoricalPunishments(ctx, "inf-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].ChangedByID != "m2" || history[0].Penalty != PenaltyTempBan {
		t.Fatalf("unexpected history: %+v", history)
	}

	if err := store.UpdateInfractionPunishment(ctx, "inf-1", nil, false); err != nil {
		t.Fatalf("clear punishment: %v", err)
	}
	got, err = store.GetInfraction(ctx, "inf-1")
	if err != nil {
		t.Fatalf("get after clear: %v", err)
	}
	if got.Punishment != nil {
		t.Fatalf("punishment should be cleared")
	}

	deleted, err := store.DeleteInfraction(ctx, "inf-1")
	if err != nil || !deleted {
		t.Fatalf("delete: deleted=%v err=%v", deleted, err)
	}
	if _, err := store.GetInfraction(ctx, "inf-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	history, err = store.ListHistoricalPunishments(ctx, "inf-1")
	if err != nil {
		t.Fatalf("history after delete: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("history should be deleted with the infraction")
	}

	deleted, err = store.DeleteInfraction(ctx, "inf-1")
	if err != nil || deleted {
		t.Fatalf("second delete: deleted=%v err=%v", deleted, err)
	}
}

func TestUpdateUnknownInfraction(t *testing.T) {
	store := newTestStore(t)
	err := store.UpdateInfractionPunishment(context.Background(), "ghost", nil, false)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListUserInfractionsOrdered(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		inf := Infraction{
			ID:        id,
			GuildID:   "g1",
			UserID:    "u1",
			CreatedAt: time.Unix(int64(100+i), 0),
			UpdatedAt: time.Unix(int64(100+i), 0),
		}
		if err := store.CreateInfraction(ctx, inf); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if err := store.CreateInfraction(ctx, Infraction{ID: "other", GuildID: "g1", UserID: "u2", CreatedAt: time.Unix(50, 0), UpdatedAt: time.Unix(50, 0)}); err != nil {
		t.Fatalf("create other: %v", err)
	}

	infractions, err := store.ListUserInfractions(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infractions) != 3 || infractions[0].ID != "a" || infractions[2].ID != "c" {
		t.Fatalf("unexpected order: %+v", infractions)
	}
}

func TestTaskFindByNameAndArguments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tasks := []Task{
		{ID: "t1", Name: "unbanMember", Arguments: []string{"u1", "g1"}, RunAt: time.Unix(500, 0), CreatedAt: time.Unix(100, 0)},
		{ID: "t2", Name: "unbanMember", Arguments: []string{"u2", "g1"}, RunAt: time.Unix(400, 0), CreatedAt: time.Unix(100, 0)},
	}
	for _, task := range tasks {
		if err := store.CreateTask(ctx, task); err != nil {
			t.Fatalf("create %s: %v", task.ID, err)
		}
	}

	got, err := store.FindTask(ctx, "unbanMember", []string{"u1", "g1"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != "t1" || got.Arguments[0] != "u1" {
		t.Fatalf("unexpected task: %+v", got)
	}

	if _, err := store.FindTask(ctx, "unbanMember", []string{"u1", "g2"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	all, err := store.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != "t2" {
		t.Fatalf("expected run_at ordering, got %+v", all)
	}

	deleted, err := store.DeleteTask(ctx, "t1")
	if err != nil || !deleted {
		t.Fatalf("delete: deleted=%v err=%v", deleted, err)
	}
	deleted, err = store.DeleteTask(ctx, "t1")
	if err != nil || deleted {
		t.Fatalf("second delete: deleted=%v err=%v", deleted, err)
	}
}

func TestEconomyBalances(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.EnsureUser(ctx, "u1", 1000)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if user.Balance != 1000 {
		t.Fatalf("starting balance %d", user.Balance)
	}
	// Ensure again must not reset anything.
	if _, err := store.AddBalance(ctx, "u1", 500, 1000); err != nil {
		t.Fatalf("add: %v", err)
	}
	user, err = store.EnsureUser(ctx, "u1", 1000)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if user.Balance != 1500 {
		t.Fatalf("balance %d, want 1500", user.Balance)
	}

	balance, err := store.AddBalance(ctx, "u1", -9999, 1000)
	if err != nil {
		t.Fatalf("overdraw: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance must clamp at zero, got %d", balance)
	}

	if _, err := store.AddBalance(ctx, "u2", 200, 1000); err != nil {
		t.Fatalf("second user: %v", err)
	}
	top, err := store.TopBalances(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].ID != "u2" {
		t.Fatalf("unexpected leaderboard: %+v", top)
	}
}

func TestQuotes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.RandomQuote(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty table, got %v", err)
	}

	if _, err := store.AddQuote(ctx, "stay a while and listen", "u1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := store.AddQuote(ctx, "stay a while and listen", "u2"); !errors.Is(err, ErrDuplicateQuote) {
		t.Fatalf("expected ErrDuplicateQuote, got %v", err)
	}

	quote, err := store.RandomQuote(ctx)
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	if quote.Content != "stay a while and listen" {
		t.Fatalf("unexpected quote: %+v", quote)
	}
	count, err := store.CountQuotes(ctx)
	if err != nil || count != 1 {
		t.Fatalf("count=%d err=%v", count, err)
	}
}

func TestTimezones(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.GetTimezone(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.SetTimezone(ctx, "u1", "Europe/Berlin"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.SetTimezone(ctx, "u1", "America/New_York"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	zone, err := store.GetTimezone(ctx, "u1")
	if err != nil || zone != "America/New_York" {
		t.Fatalf("zone=%q err=%v", zone, err)
	}
}

func TestAuditLogCleanup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := AuditLog{GuildID: "g1", Level: "INFO", Event: "old", CreatedAt: time.Now().Add(-60 * 24 * time.Hour)}
	recent := AuditLog{GuildID: "g1", Level: "INFO", Event: "recent", CreatedAt: time.Now()}
	for _, entry := range []AuditLog{old, recent} {
		if err := store.AddAuditLog(ctx, entry); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	if err := store.CleanupAuditLogs(ctx, 30); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	logs, err := store.ListAuditLogs(ctx, "g1", time.Now().Add(-90*24*time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 || logs[0].Event != "recent" {
		t.Fatalf("unexpected logs after cleanup: %+v", logs)
	}
}
