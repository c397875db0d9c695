package moderation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"warden/internal/audit"
	"warden/internal/scheduler"
	"warden/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type fakeTimer struct {
	fn      func()
	due     time.Time
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) AfterFunc(d time.Duration, fn func()) scheduler.Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{fn: fn, due: f.now.Add(d)}
	f.timers = append(f.timers, t)
	return t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	var due, rest []*fakeTimer
	for _, timer := range f.timers {
		if !timer.stopped && !timer.due.After(f.now) {
			due = append(due, timer)
		} else {
			rest = append(rest, timer)
		}
	}
	f.timers = rest
	f.mu.Unlock()
	for _, timer := range due {
		timer.fn()
	}
}

type timeoutCall struct {
	userID string
	until  *time.Time
}

type sentMessage struct {
	channelID string
	message   *discordgo.MessageSend
}

type fakeClient struct {
	mu           sync.Mutex
	perms        map[string]int64
	bans         []string
	unbans       []string
	kicks        []string
	timeouts     []timeoutCall
	sent         []sentMessage
	edits        []*discordgo.MessageEdit
	dms          []string
	nextID       int
	banRemoveErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{perms: map[string]int64{}}
}

func (c *fakeClient) BanCreate(guildID, userID, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bans = append(c.bans, userID)
	return nil
}

func (c *fakeClient) BanRemove(guildID, userID, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.banRemoveErr != nil {
		return c.banRemoveErr
	}
	c.unbans = append(c.unbans, userID)
	return nil
}

func (c *fakeClient) Timeout(guildID, userID string, until *time.Time, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeouts = append(c.timeouts, timeoutCall{userID: userID, until: until})
	return nil
}

func (c *fakeClient) Kick(guildID, userID, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kicks = append(c.kicks, userID)
	return nil
}

func (c *fakeClient) SendMessage(channelID string, message *discordgo.MessageSend) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMessage{channelID: channelID, message: message})
	c.nextID++
	return "msg-" + strconv.Itoa(c.nextID), nil
}

func (c *fakeClient) EditMessage(channelID, messageID string, edit *discordgo.MessageEdit) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edits = append(c.edits, edit)
	return nil
}

func (c *fakeClient) SendDirectMessage(userID string, embed *discordgo.MessageEmbed) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dms = append(c.dms, userID)
	return nil
}

func (c *fakeClient) MemberPermissions(guildID, userID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.perms[userID], nil
}

func (c *fakeClient) MemberDisplayName(guildID, userID string) string { return "member-" + userID }

func (c *fakeClient) GuildName(guildID string) string { return "Test Guild" }

type fixture struct {
	lifecycle *Lifecycle
	dist      *Distributor
	sched     *scheduler.Scheduler
	clock     *fakeClock
	client    *fakeClient
	store     *storage.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := zap.NewNop()
	client := newFakeClient()
	sched := scheduler.New(store, logger)
	clock := &fakeClock{now: time.Unix(5000, 0)}
	sched.WithClock(clock)

	dist := NewDistributor(client, sched)
	lifecycle := NewLifecycle(store, dist, sched, client, audit.NewLogger(store, logger), logger, Config{
		DefaultLogChannel: "log-chan",
		ApprovalWindow:    24 * time.Hour,
		DMOnInfraction:    true,
	})

	sched.Register(PresetUnbanMember, func(ctx context.Context, args ...string) error {
		if len(args) < 2 {
			return fmt.Errorf("unbanMember: want user and guild, got %v", args)
		}
		return client.BanRemove(args[1], args[0], "temporary ban expired")
	})
	sched.Register(PresetExpirePending, func(ctx context.Context, args ...string) error {
		if len(args) < 1 {
			return fmt.Errorf("expirePending: missing infraction id")
		}
		return lifecycle.ExpirePending(ctx, args[0])
	})
	if err := sched.Load(context.Background()); err != nil {
		t.Fatalf("load scheduler: %v", err)
	}
	return &fixture{lifecycle: lifecycle, dist: dist, sched: sched, clock: clock, client: client, store: store}
}

func TestTransitionTable(t *testing.T) {
	kinds := []storage.Penalty{storage.PenaltyTimeout, storage.PenaltyKick, storage.PenaltyTempBan, storage.PenaltyBan}
	disallowed := map[[2]storage.Penalty]bool{
		{storage.PenaltyBan, storage.PenaltyKick}:        true,
		{storage.PenaltyBan, storage.PenaltyTimeout}:     true,
		{storage.PenaltyTempBan, storage.PenaltyKick}:    true,
		{storage.PenaltyTempBan, storage.PenaltyTimeout}: true,
		{storage.PenaltyKick, storage.PenaltyTimeout}:    true,
	}
	for _, from := range kinds {
		for _, to := range kinds {
			got := TransitionAllowed(&storage.Punishment{Penalty: from}, &storage.Punishment{Penalty: to})
			want := !disallowed[[2]storage.Penalty{from, to}]
			if got != want {
				t.Errorf("%s to %s: allowed=%v want %v", from, to, got, want)
			}
		}
		if !TransitionAllowed(&storage.Punishment{Penalty: from}, nil) {
			t.Errorf("%s to none should be allowed", from)
		}
		if !TransitionAllowed(nil, &storage.Punishment{Penalty: from}) {
			t.Errorf("none to %s should be allowed", from)
		}
	}
}

func TestAdministerRequiresDurationForTemporary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, kind := range []storage.Penalty{storage.PenaltyTimeout, storage.PenaltyTempBan} {
		f.dist.SetInfraction("g1", "u1", "spam", &storage.Punishment{Penalty: kind})
		if err := f.dist.Administer(ctx); !errors.Is(err, ErrMissingDuration) {
			t.Fatalf("%s without duration: got %v", kind, err)
		}
		f.dist.SetInfraction("g1", "u1", "spam", &storage.Punishment{Penalty: kind, Duration: -time.Minute})
		if err := f.dist.Administer(ctx); !errors.Is(err, ErrMissingDuration) {
			t.Fatalf("%s negative duration: got %v", kind, err)
		}
	}
	if len(f.client.bans)+len(f.client.timeouts)+len(f.client.kicks) != 0 {
		t.Fatalf("platform was called despite validation failure")
	}
}

func TestAdministerPermanentKindsIgnoreDuration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.dist.SetInfraction("g1", "u1", "spam", &storage.Punishment{Penalty: storage.PenaltyBan})
	if err := f.dist.Administer(ctx); err != nil {
		t.Fatalf("ban: %v", err)
	}
	f.dist.SetInfraction("g1", "u2", "spam", &storage.Punishment{Penalty: storage.PenaltyKick})
	if err := f.dist.Administer(ctx); err != nil {
		t.Fatalf("kick: %v", err)
	}

	tasks, err := f.store.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("permanent kinds must not schedule tasks, have %d", len(tasks))
	}
}

func TestTempBanSchedulesSingleUnban(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	duration := 2 * time.Hour
	f.dist.SetInfraction("g1", "u1", "raiding", &storage.Punishment{Penalty: storage.PenaltyTempBan, Duration: duration})
	if err := f.dist.Administer(ctx); err != nil {
		t.Fatalf("administer: %v", err)
	}

	tasks, err := f.store.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Name != PresetUnbanMember {
		t.Fatalf("expected one unban task, have %v", tasks)
	}
	wantDue := f.clock.Now().Add(duration)
	if !tasks[0].RunAt.Equal(wantDue) {
		t.Fatalf("task due %v, want %v", tasks[0].RunAt, wantDue)
	}

	f.clock.Advance(duration)
	if len(f.client.unbans) != 1 || f.client.unbans[0] != "u1" {
		t.Fatalf("expected one unban for u1, have %v", f.client.unbans)
	}
	tasks, err = f.store.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("fired task should be removed")
	}

	// The scheduled unban is gone, so run-now reports not found.
	if err := f.sched.RunTaskNow(ctx, PresetUnbanMember, "u1", "g1"); !errors.Is(err, scheduler.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestAdministerAuthorizedBan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client.perms["mod1"] = discordgo.PermissionBanMembers

	inf, err := f.lifecycle.AdministerInfraction(ctx, storage.Infraction{
		GuildID:        "g1",
		UserID:         "u1",
		ModID:          "mod1",
		ChannelID:      "c1",
		Reason:         "repeated spam",
		RelatedMessage: "https://discord.com/channels/g1/c1/m1",
		Punishment:     &storage.Punishment{Penalty: storage.PenaltyBan},
	})
	if err != nil {
		t.Fatalf("administer: %v", err)
	}
	if inf.PendingApproval {
		t.Fatalf("authorized ban should not be pending")
	}
	if len(f.client.bans) != 1 || f.client.bans[0] != "u1" {
		t.Fatalf("expected ban for u1, have %v", f.client.bans)
	}
	if len(f.client.sent) != 1 || f.client.sent[0].channelID != "log-chan" {
		t.Fatalf("expected one log message, have %v", f.client.sent)
	}
	if len(f.client.sent[0].message.Components) != 0 {
		t.Fatalf("authorized infraction must not carry an authorize button")
	}
	fields := map[string]string{}
	for _, field := range f.client.sent[0].message.Embeds[0].Fields {
		fields[field.Name] = field.Value
	}
	if fields["Related message"] != "https://discord.com/channels/g1/c1/m1" {
		t.Fatalf("related message missing from log embed: %v", fields)
	}
	if !strings.Contains(fields["Member"], "member-u1") {
		t.Fatalf("member field should carry the display name: %q", fields["Member"])
	}
	if len(f.client.dms) != 1 || f.client.dms[0] != "u1" {
		t.Fatalf("expected dm to target, have %v", f.client.dms)
	}

	stored, err := f.store.GetInfraction(ctx, inf.ID)
	if err != nil {
		t.Fatalf("get infraction: %v", err)
	}
	if stored.LogMessageID == "" || stored.LogChannelID != "log-chan" {
		t.Fatalf("log message location not recorded: %+v", stored)
	}
}

func TestAdministerUnauthorizedBanGoesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// mod2 can kick but not ban.
	f.client.perms["mod2"] = discordgo.PermissionKickMembers

	inf, err := f.lifecycle.AdministerInfraction(ctx, storage.Infraction{
		GuildID:    "g1",
		UserID:     "u1",
		ModID:      "mod2",
		Reason:     "alt account",
		Punishment: &storage.Punishment{Penalty: storage.PenaltyBan},
	})
	if err != nil {
		t.Fatalf("administer: %v", err)
	}
	if !inf.PendingApproval {
		t.Fatalf("expected pending approval")
	}
	if len(f.client.bans) != 0 {
		t.Fatalf("ban must not reach the platform while pending")
	}
	if len(f.client.timeouts) != 1 || f.client.timeouts[0].userID != "u1" || f.client.timeouts[0].until == nil {
		t.Fatalf("expected interim timeout, have %v", f.client.timeouts)
	}
	window := time.Until(*f.client.timeouts[0].until)
	if window < 23*time.Hour || window > 25*time.Hour {
		t.Fatalf("interim timeout window %v, want about 24h", window)
	}

	if len(f.client.sent) != 1 {
		t.Fatalf("expected one log message")
	}
	components := f.client.sent[0].message.Components
	if len(components) != 1 {
		t.Fatalf("expected authorize component row")
	}
	row, ok := components[0].(discordgo.ActionsRow)
	if !ok || len(row.Components) != 1 {
		t.Fatalf("unexpected component shape: %v", components)
	}
	button, ok := row.Components[0].(discordgo.Button)
	if !ok || button.CustomID != AuthorizeCustomID(inf.ID) {
		t.Fatalf("unexpected button: %+v", row.Components[0])
	}

	task, err := f.store.FindTask(ctx, PresetExpirePending, []string{inf.ID})
	if err != nil {
		t.Fatalf("expected pending expiry task: %v", err)
	}
	if !task.RunAt.Equal(f.clock.Now().Add(24 * time.Hour)) {
		t.Fatalf("expiry due %v", task.RunAt)
	}
}

func TestAdministerUnauthorizedKickRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.lifecycle.AdministerInfraction(context.Background(), storage.Infraction{
		GuildID:    "g1",
		UserID:     "u1",
		ModID:      "mod3",
		Punishment: &storage.Punishment{Penalty: storage.PenaltyKick},
	})
	if !errors.Is(err, ErrMissingPermission) {
		t.Fatalf("expected ErrMissingPermission, got %v", err)
	}
	if len(f.client.kicks) != 0 {
		t.Fatalf("kick must not reach the platform")
	}
}

func TestAuthorizePendingBan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client.perms["mod2"] = discordgo.PermissionKickMembers
	f.client.perms["admin"] = discordgo.PermissionBanMembers

	inf, err := f.lifecycle.AdministerInfraction(ctx, storage.Infraction{
		GuildID:    "g1",
		UserID:     "u1",
		ModID:      "mod2",
		Reason:     "alt account",
		Punishment: &storage.Punishment{Penalty: storage.PenaltyBan},
	})
	if err != nil {
		t.Fatalf("administer: %v", err)
	}

	authorized, err := f.lifecycle.AuthorizePunishment(ctx, inf.ID, "admin")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if authorized.PendingApproval {
		t.Fatalf("authorized infraction still pending")
	}
	if len(f.client.bans) != 1 || f.client.bans[0] != "u1" {
		t.Fatalf("expected ban after authorization, have %v", f.client.bans)
	}
	// Interim timeout lifted.
	last := f.client.timeouts[len(f.client.timeouts)-1]
	if last.until != nil {
		t.Fatalf("expected timeout cleared")
	}
	// Expiry task cancelled.
	if _, err := f.store.FindTask(ctx, PresetExpirePending, []string{inf.ID}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected expiry task gone, got %v", err)
	}

	if _, err := f.lifecycle.AuthorizePunishment(ctx, inf.ID, "admin"); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending on second authorize, got %v", err)
	}
}

func TestPendingBanExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client.perms["mod2"] = 0

	inf, err := f.lifecycle.AdministerInfraction(ctx, storage.Infraction{
		GuildID:    "g1",
		UserID:     "u1",
		ModID:      "mod2",
		Reason:     "alt account",
		Punishment: &storage.Punishment{Penalty: storage.PenaltyBan},
	})
	if err != nil {
		t.Fatalf("administer: %v", err)
	}

	f.clock.Advance(24 * time.Hour)

	stored, err := f.store.GetInfraction(ctx, inf.ID)
	if err != nil {
		t.Fatalf("get infraction: %v", err)
	}
	if stored.Punishment != nil || stored.PendingApproval {
		t.Fatalf("expected punishment cleared after expiry: %+v", stored)
	}
	if len(f.client.bans) != 0 {
		t.Fatalf("expired punishment must never reach the platform")
	}
}

func TestChangeBanToTempBan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client.perms["mod1"] = discordgo.PermissionBanMembers
	f.client.perms["mod9"] = discordgo.PermissionBanMembers

	inf, err := f.lifecycle.AdministerInfraction(ctx, storage.Infraction{
		GuildID:    "g1",
		UserID:     "u1",
		ModID:      "mod1",
		Reason:     "spam",
		Punishment: &storage.Punishment{Penalty: storage.PenaltyBan},
	})
	if err != nil {
		t.Fatalf("administer: %v", err)
	}
	sentBefore := len(f.client.sent)

	changed, err := f.lifecycle.ChangePunishment(ctx, inf.ID, &storage.Punishment{
		Penalty:       storage.PenaltyTempBan,
		Duration:      time.Hour,
		HumanDuration: "1h",
	}, "mod9")
	if err != nil {
		t.Fatalf("change: %v", err)
	}
	if changed.Punishment == nil || changed.Punishment.Penalty != storage.PenaltyTempBan {
		t.Fatalf("current punishment not updated: %+v", changed.Punishment)
	}

	history, err := f.store.ListHistoricalPunishments(ctx, inf.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Penalty != storage.PenaltyBan || history[0].ChangedByID != "mod9" {
		t.Fatalf("unexpected history: %+v", history)
	}

	task, err := f.store.FindTask(ctx, PresetUnbanMember, []string{"u1", "g1"})
	if err != nil {
		t.Fatalf("expected unban task: %v", err)
	}
	if !task.RunAt.Equal(f.clock.Now().Add(time.Hour)) {
		t.Fatalf("task due %v, want 1h out", task.RunAt)
	}

	if len(f.client.edits) != 1 {
		t.Fatalf("expected one log edit, have %d", len(f.client.edits))
	}
	if len(f.client.sent) != sentBefore+1 {
		t.Fatalf("expected one reply log message")
	}
	reply := f.client.sent[len(f.client.sent)-1]
	if reply.message.Reference == nil || reply.message.Reference.MessageID == "" {
		t.Fatalf("change log should reply to the original log message")
	}

	// Old ban lifted, new ban applied.
	if len(f.client.unbans) != 1 || len(f.client.bans) != 2 {
		t.Fatalf("unbans=%v bans=%v", f.client.unbans, f.client.bans)
	}
}

func TestChangeRejectsDisallowedTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client.perms["mod1"] = discordgo.PermissionBanMembers

	inf, err := f.lifecycle.AdministerInfraction(ctx, storage.Infraction{
		GuildID:    "g1",
		UserID:     "u1",
		ModID:      "mod1",
		Punishment: &storage.Punishment{Penalty: storage.PenaltyBan},
	})
	if err != nil {
		t.Fatalf("administer: %v", err)
	}
	bansBefore := len(f.client.bans)

	_, err = f.lifecycle.ChangePunishment(ctx, inf.ID, &storage.Punishment{Penalty: storage.PenaltyKick}, "mod1")
	if !errors.Is(err, ErrDisallowedTransition) {
		t.Fatalf("expected ErrDisallowedTransition, got %v", err)
	}

	// Nothing was mutated.
	history, err := f.store.ListHistoricalPunishments(ctx, inf.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("rejected change must not archive anything")
	}
	stored, err := f.store.GetInfraction(ctx, inf.ID)
	if err != nil {
		t.Fatalf("get infraction: %v", err)
	}
	if stored.Punishment == nil || stored.Punishment.Penalty != storage.PenaltyBan {
		t.Fatalf("punishment changed despite rejection: %+v", stored.Punishment)
	}
	if len(f.client.bans) != bansBefore || len(f.client.unbans) != 0 || len(f.client.kicks) != 0 {
		t.Fatalf("platform touched despite rejection")
	}
}

func TestChangeRequiresPermissionForNewPenalty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client.perms["mod1"] = discordgo.PermissionModerateMembers

	inf, err := f.lifecycle.AdministerInfraction(ctx, storage.Infraction{
		GuildID:    "g1",
		UserID:     "u1",
		ModID:      "mod1",
		Punishment: &storage.Punishment{Penalty: storage.PenaltyTimeout, Duration: time.Hour},
	})
	if err != nil {
		t.Fatalf("administer: %v", err)
	}

	_, err = f.lifecycle.ChangePunishment(ctx, inf.ID, &storage.Punishment{Penalty: storage.PenaltyBan}, "mod1")
	if !errors.Is(err, ErrMissingPermission) {
		t.Fatalf("expected ErrMissingPermission, got %v", err)
	}
	if len(f.client.bans) != 0 {
		t.Fatalf("ban applied despite missing permission")
	}
	stored, err := f.store.GetInfraction(ctx, inf.ID)
	if err != nil {
		t.Fatalf("get infraction: %v", err)
	}
	if stored.Punishment == nil || stored.Punishment.Penalty != storage.PenaltyTimeout {
		t.Fatalf("punishment changed despite rejection: %+v", stored.Punishment)
	}
}

func TestDistributorChangeKeepsWorkingSetOnRemoveFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	removeErr := errors.New("ban lookup failed")
	f.client.banRemoveErr = removeErr

	previous := &storage.Punishment{Penalty: storage.PenaltyBan}
	f.dist.SetInfraction("g1", "u1", "spam", &storage.Punishment{Penalty: storage.PenaltyTimeout, Duration: time.Hour})
	if err := f.dist.Change(ctx, previous); !errors.Is(err, removeErr) {
		t.Fatalf("expected remove failure, got %v", err)
	}
	if len(f.client.timeouts) != 0 {
		t.Fatalf("new punishment applied despite failed removal")
	}

	// The working set still holds the new punishment, so a retry completes
	// the pivot.
	f.client.banRemoveErr = nil
	if err := f.dist.Change(ctx, previous); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(f.client.unbans) != 1 || len(f.client.timeouts) != 1 {
		t.Fatalf("unbans=%v timeouts=%v", f.client.unbans, f.client.timeouts)
	}
}

func TestChangePendingInfractionStripsAuthorizeButton(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// mod2 cannot ban, so the ban goes pending behind an interim timeout.
	f.client.perms["mod2"] = discordgo.PermissionKickMembers

	inf, err := f.lifecycle.AdministerInfraction(ctx, storage.Infraction{
		GuildID:    "g1",
		UserID:     "u1",
		ModID:      "mod2",
		Reason:     "alt account",
		Punishment: &storage.Punishment{Penalty: storage.PenaltyBan},
	})
	if err != nil {
		t.Fatalf("administer: %v", err)
	}
	if !inf.PendingApproval {
		t.Fatalf("ban should be pending")
	}

	changed, err := f.lifecycle.ChangePunishment(ctx, inf.ID, nil, "mod2")
	if err != nil {
		t.Fatalf("change to none: %v", err)
	}
	if changed.Punishment != nil || changed.PendingApproval {
		t.Fatalf("pending punishment should be cleared: %+v", changed)
	}
	// The punishment was never applied; only the interim timeout is lifted.
	if len(f.client.bans) != 0 || len(f.client.unbans) != 0 {
		t.Fatalf("platform ban state touched: bans=%v unbans=%v", f.client.bans, f.client.unbans)
	}
	last := f.client.timeouts[len(f.client.timeouts)-1]
	if last.until != nil {
		t.Fatalf("interim timeout should be cleared, got %v", last.until)
	}
	if _, err := f.store.FindTask(ctx, PresetExpirePending, []string{inf.ID}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expiry task should be cancelled, got %v", err)
	}
	if len(f.client.edits) == 0 {
		t.Fatalf("log message should be edited")
	}
	edit := f.client.edits[len(f.client.edits)-1]
	if edit.Components == nil || len(*edit.Components) != 0 {
		t.Fatalf("authorize button should be removed from the log message")
	}
}

func TestChangeToNoneClearsPunishment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client.perms["mod1"] = discordgo.PermissionModerateMembers

	inf, err := f.lifecycle.AdministerInfraction(ctx, storage.Infraction{
		GuildID:    "g1",
		UserID:     "u1",
		ModID:      "mod1",
		Punishment: &storage.Punishment{Penalty: storage.PenaltyTimeout, Duration: time.Hour},
	})
	if err != nil {
		t.Fatalf("administer: %v", err)
	}

	changed, err := f.lifecycle.ChangePunishment(ctx, inf.ID, nil, "mod1")
	if err != nil {
		t.Fatalf("change to none: %v", err)
	}
	if changed.Punishment != nil {
		t.Fatalf("punishment should be cleared")
	}
	// Timeout cleared on the platform.
	last := f.client.timeouts[len(f.client.timeouts)-1]
	if last.until != nil {
		t.Fatalf("expected timeout cleared, got %v", last.until)
	}
}

func TestRemoveInfraction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.client.perms["mod1"] = discordgo.PermissionBanMembers

	inf, err := f.lifecycle.AdministerInfraction(ctx, storage.Infraction{
		GuildID:    "g1",
		UserID:     "u1",
		ModID:      "mod1",
		Punishment: &storage.Punishment{Penalty: storage.PenaltyBan},
	})
	if err != nil {
		t.Fatalf("administer: %v", err)
	}

	if err := f.lifecycle.RemoveInfraction(ctx, inf.ID, "mod1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(f.client.unbans) != 1 {
		t.Fatalf("expected ban lifted on removal")
	}
	if _, err := f.store.GetInfraction(ctx, inf.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected record deleted, got %v", err)
	}
}

func TestRemoveUnknownInfractionIsNoOp(t *testing.T) {
	f := newFixture(t)
	if err := f.lifecycle.RemoveInfraction(context.Background(), "does-not-exist", "mod1"); err != nil {
		t.Fatalf("expected silent no-op, got %v", err)
	}
	if len(f.client.unbans)+len(f.client.bans)+len(f.client.timeouts) != 0 {
		t.Fatalf("platform touched for unknown infraction")
	}
}

func TestPreviousInfractionsTruncation(t *testing.T) {
	var previous []storage.Infraction
	for i := 0; i < 100; i++ {
		previous = append(previous, storage.Infraction{
			ID:        fmt.Sprintf("inf-%03d", i),
			Reason:    "a fairly long reason string that pads out each rendered line considerably",
			CreatedAt: time.Unix(int64(i)*86400, 0),
		})
	}
	field := previousInfractionsField(previous, "")
	if field == "" {
		t.Fatalf("expected non-empty field")
	}
	if len(field) > previousInfractionsLimit {
		t.Fatalf("field length %d exceeds limit", len(field))
	}
}
