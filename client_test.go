package quotesync

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/agentstation/quotesync/pkg/backup"
	"github.com/agentstation/quotesync/pkg/constants"
	"github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/kv"
	"github.com/agentstation/quotesync/pkg/logging"
	"github.com/agentstation/quotesync/pkg/reconcile"
	"github.com/agentstation/quotesync/pkg/records"
	"github.com/agentstation/quotesync/pkg/remote/mocks"
	pkgsync "github.com/agentstation/quotesync/pkg/sync"
)

// flakyKV fails every write while failing is set.
type flakyKV struct {
	*kv.Memory
	failing atomic.Bool
}

func (f *flakyKV) Set(key, value string) error {
	if f.failing.Load() {
		return stderrors.New("disk full")
	}
	return f.Memory.Set(key, value)
}

func newTestClient(t *testing.T, seed records.Collection, opts ...Option) (*client, *mocks.MockClient) {
	t.Helper()
	logging.DisableLoggingForTest(t)

	ctrl := gomock.NewController(t)
	rc := mocks.NewMockClient(ctrl)

	all := append([]Option{
		WithSeed(seed),
		WithRemote(rc),
		WithSubmitOnAdd(false),
	}, opts...)
	c, err := New(all...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c.(*client), rc
}

func TestSyncRemotePrecedence(t *testing.T) {
	c, rc := newTestClient(t, records.Collection{{Text: "Be bold", Category: "Motivation"}})
	rc.EXPECT().List(gomock.Any(), constants.DefaultRemoteLimit).Return([]records.Record{
		{Text: "Be bold", Category: "Server"},
		{Text: "Stay calm", Category: "Server"},
	}, nil)

	var got []pkgsync.Result
	c.OnSyncResult(func(r pkgsync.Result) { got = append(got, r) })

	result, err := c.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, records.Collection{
		{Text: "Be bold", Category: "Server"},
		{Text: "Stay calm", Category: "Server"},
	}, c.All())
	assert.Equal(t, records.Collection{{Text: "Stay calm", Category: "Server"}}, result.Added)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "be bold", result.Conflicts[0].Key)
	assert.Equal(t, "Motivation", result.Conflicts[0].LocalCategory)
	assert.Equal(t, "Server", result.Conflicts[0].RemoteCategory)
	assert.True(t, result.Persisted)
	assert.Equal(t, "remote-precedence", result.Policy)

	require.Len(t, got, 1)
	assert.Equal(t, result.ID, got[0].ID)
	assert.Equal(t, result.Conflicts, c.Conflicts())

	status := c.Status()
	assert.Equal(t, pkgsync.Completed, status.State)
	assert.Equal(t, 1, status.Passes)
	assert.True(t, status.HasBackup)
	assert.Equal(t, 1, status.Conflicts)
}

func TestSyncLocalPrecedence(t *testing.T) {
	c, rc := newTestClient(t,
		records.Collection{{Text: "Be bold", Category: "Motivation"}},
		WithPolicy(reconcile.NewLocalPrecedence()),
	)
	rc.EXPECT().List(gomock.Any(), gomock.Any()).Return([]records.Record{
		{Text: "Be bold", Category: "Server"},
		{Text: "Stay calm", Category: "Server"},
	}, nil)

	result, err := c.Sync(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Conflicts, 1)
	assert.Equal(t, records.Collection{
		{Text: "Be bold", Category: "Motivation"},
		{Text: "Stay calm", Category: "Server"},
	}, c.All())
}

func TestSyncIsIdempotent(t *testing.T) {
	c, rc := newTestClient(t, records.Collection{{Text: "Be bold", Category: "Motivation"}})
	remote := []records.Record{{Text: "Stay calm", Category: "Server"}}
	rc.EXPECT().List(gomock.Any(), gomock.Any()).Return(remote, nil).Times(2)

	_, err := c.Sync(context.Background())
	require.NoError(t, err)
	second, err := c.Sync(context.Background())
	require.NoError(t, err)

	assert.False(t, second.HasChanges())
	assert.Equal(t, "Already up to date", second.Summary())
	assert.Len(t, c.All(), 2)
}

func TestSyncRemoteFailureLeavesCollection(t *testing.T) {
	seed := records.Collection{{Text: "Be bold", Category: "Motivation"}}
	c, rc := newTestClient(t, seed)
	rc.EXPECT().List(gomock.Any(), gomock.Any()).
		Return(nil, errors.NewRemoteUnavailableError("list", "http://remote", 503, nil))

	var failures []string
	c.OnSyncFailed(func(msg string) { failures = append(failures, msg) })
	var results int
	c.OnSyncResult(func(pkgsync.Result) { results++ })

	_, err := c.Sync(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsRemoteUnavailable(err))

	assert.Equal(t, seed, c.All())
	assert.Len(t, failures, 1)
	assert.Zero(t, results)

	status := c.Status()
	assert.Equal(t, pkgsync.Failed, status.State)
	assert.NotEmpty(t, status.LastError)
	assert.Empty(t, c.Conflicts())
}

func TestSyncRejectsReentrantPass(t *testing.T) {
	c, rc := newTestClient(t, records.Collection{{Text: "Be bold", Category: "Motivation"}})

	started := make(chan struct{})
	release := make(chan struct{})
	rc.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, limit int) ([]records.Record, error) {
			close(started)
			<-release
			return []records.Record{{Text: "Stay calm", Category: "Server"}}, nil
		}).Times(1)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = c.Sync(context.Background())
	}()

	<-started
	assert.Equal(t, pkgsync.Syncing, c.Status().State)

	_, err := c.Sync(context.Background())
	assert.ErrorIs(t, err, errors.ErrSyncInProgress)
	assert.ErrorIs(t, c.Undo(context.Background()), errors.ErrSyncInProgress)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)

	assert.Equal(t, records.Collection{
		{Text: "Be bold", Category: "Motivation"},
		{Text: "Stay calm", Category: "Server"},
	}, c.All())
	assert.Equal(t, 1, c.Status().Passes)
}

func TestSyncDryRun(t *testing.T) {
	seed := records.Collection{{Text: "Be bold", Category: "Motivation"}}
	c, rc := newTestClient(t, seed)
	rc.EXPECT().List(gomock.Any(), 5).Return([]records.Record{
		{Text: "Be bold", Category: "Server"},
	}, nil)

	result, err := c.Sync(context.Background(), pkgsync.WithDryRun(true), pkgsync.WithLimit(5))
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Len(t, result.Conflicts, 1)
	assert.Equal(t, seed, c.All())
	assert.Empty(t, c.Conflicts())
	assert.False(t, c.Status().HasBackup)
	assert.Equal(t, pkgsync.Idle, c.Status().State)
}

func TestSyncWithoutRemote(t *testing.T) {
	logging.DisableLoggingForTest(t)
	c, err := New()
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Sync(context.Background())
	var cfgErr *errors.ConfigError
	assert.True(t, stderrors.As(err, &cfgErr))
}

func TestUndoRoundTrip(t *testing.T) {
	seed := records.Collection{
		{Text: "Be bold", Category: "Motivation"},
		{Text: "Keep going", Category: "Resilience"},
	}
	c, rc := newTestClient(t, seed)

	assert.ErrorIs(t, c.Undo(context.Background()), errors.ErrNoBackupAvailable)

	rc.EXPECT().List(gomock.Any(), gomock.Any()).Return([]records.Record{
		{Text: "be bold", Category: "Server"},
		{Text: "Stay calm", Category: "Server"},
	}, nil)

	before := c.All()
	_, err := c.Sync(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, before, c.All())

	var undone []backup.Snapshot
	c.OnUndo(func(s backup.Snapshot) { undone = append(undone, s) })

	require.NoError(t, c.Undo(context.Background()))
	assert.Equal(t, before, c.All())
	assert.Empty(t, c.Conflicts())
	assert.Len(t, undone, 1)

	// The snapshot stays until the next pass.
	require.NoError(t, c.Undo(context.Background()))
	assert.Equal(t, before, c.All())
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		choice   reconcile.Choice
		expected string
	}{
		{name: "keep local", choice: reconcile.KeepLocal, expected: "Motivation"},
		{name: "use remote", choice: reconcile.UseRemote, expected: "Server"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rc := newTestClient(t, records.Collection{{Text: "Be bold", Category: "Motivation"}})
			rc.EXPECT().List(gomock.Any(), gomock.Any()).Return([]records.Record{
				{Text: "Be bold", Category: "Server"},
			}, nil)

			_, err := c.Sync(context.Background())
			require.NoError(t, err)

			var resolved []reconcile.Choice
			c.OnConflictResolved(func(_ reconcile.Conflict, choice reconcile.Choice) {
				resolved = append(resolved, choice)
			})

			require.NoError(t, c.Resolve(context.Background(), "  BE BOLD ", tt.choice))

			rec, err := c.Get("be bold")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rec.Category)
			assert.Empty(t, c.Conflicts())
			assert.Equal(t, []reconcile.Choice{tt.choice}, resolved)

			err = c.Resolve(context.Background(), "be bold", tt.choice)
			assert.True(t, errors.IsNotFound(err))
		})
	}
}

func TestResolveInvalidChoice(t *testing.T) {
	c, _ := newTestClient(t, nil)
	err := c.Resolve(context.Background(), "x", reconcile.Choice("merge"))
	assert.True(t, errors.IsValidationError(err))
}

func TestConflictsSurviveRestart(t *testing.T) {
	logging.DisableLoggingForTest(t)
	durable := kv.NewMemory()

	c, rc := newTestClient(t, records.Collection{{Text: "Be bold", Category: "Motivation"}}, WithStorage(durable))
	rc.EXPECT().List(gomock.Any(), gomock.Any()).Return([]records.Record{
		{Text: "Be bold", Category: "Server"},
	}, nil)
	_, err := c.Sync(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	reopened, err := New(WithStorage(durable))
	require.NoError(t, err)
	defer reopened.Close()

	assert.Len(t, reopened.Conflicts(), 1)
	assert.Equal(t, "Server", reopened.All()[0].Category)

	require.NoError(t, reopened.Resolve(context.Background(), "be bold", reconcile.KeepLocal))
	require.NoError(t, reopened.Undo(context.Background()))
	assert.Equal(t, records.Collection{{Text: "Be bold", Category: "Motivation"}}, reopened.All())
}

func TestSyncPersistenceFailure(t *testing.T) {
	durable := &flakyKV{Memory: kv.NewMemory()}
	c, rc := newTestClient(t, records.Collection{{Text: "Be bold", Category: "Motivation"}}, WithStorage(durable))
	rc.EXPECT().List(gomock.Any(), gomock.Any()).Return([]records.Record{
		{Text: "Stay calm", Category: "Server"},
	}, nil)

	durable.failing.Store(true)
	result, err := c.Sync(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Persisted)
	assert.Len(t, c.All(), 2)

	_, ok, err := durable.Get(constants.KeyRecords)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdd(t *testing.T) {
	t.Run("default category and submit", func(t *testing.T) {
		c, rc := newTestClient(t, nil, WithSubmitOnAdd(true))
		rc.EXPECT().Submit(gomock.Any(), records.Record{Text: "Stay curious", Category: constants.DefaultUserCategory}).Return(nil)

		var added []records.Record
		c.OnRecordAdded(func(r records.Record) { added = append(added, r) })

		result, err := c.Add(context.Background(), "  Stay curious ", "")
		require.NoError(t, err)
		assert.True(t, result.Created)
		assert.True(t, result.Persisted)
		assert.True(t, result.Submitted)
		assert.Len(t, added, 1)
	})

	t.Run("submit failure keeps the record", func(t *testing.T) {
		c, rc := newTestClient(t, nil, WithSubmitOnAdd(true))
		rc.EXPECT().Submit(gomock.Any(), gomock.Any()).
			Return(errors.NewRemoteUnavailableError("submit", "http://remote", 500, nil))

		var failed int
		c.OnSubmitFailed(func(records.Record, error) { failed++ })

		result, err := c.Add(context.Background(), "Stay curious", "Wisdom")
		require.NoError(t, err)
		assert.False(t, result.Submitted)
		assert.NotEmpty(t, result.SubmitErr)
		assert.Equal(t, 1, failed)
		assert.Len(t, c.All(), 1)
	})

	t.Run("existing key updates category", func(t *testing.T) {
		c, _ := newTestClient(t, records.Collection{{Text: "Be bold", Category: "Motivation"}})

		var updated int
		c.OnRecordUpdated(func(old, new records.Record) { updated++ })

		result, err := c.Add(context.Background(), "BE BOLD", "Courage")
		require.NoError(t, err)
		assert.False(t, result.Created)
		assert.Equal(t, records.Collection{{Text: "Be bold", Category: "Courage"}}, c.All())
		assert.Equal(t, 1, updated)
	})

	t.Run("empty text", func(t *testing.T) {
		c, _ := newTestClient(t, nil)
		_, err := c.Add(context.Background(), "   ", "x")
		assert.True(t, errors.IsValidationError(err))
	})
}

func TestRemove(t *testing.T) {
	c, _ := newTestClient(t, records.Collection{{Text: "Be bold", Category: "Motivation"}})

	var removed int
	c.OnRecordRemoved(func(records.Record) { removed++ })

	require.NoError(t, c.Remove("Be Bold"))
	assert.Empty(t, c.All())
	assert.Equal(t, 1, removed)
	assert.True(t, errors.IsNotFound(c.Remove("be bold")))
}

func TestImport(t *testing.T) {
	seed := records.Collection{{Text: "Be bold", Category: "Motivation"}}

	tests := []struct {
		name    string
		input   string
		wantErr bool
		added   int
		updated int
	}{
		{name: "valid", input: `[{"text":"Stay calm","category":"Zen"},{"text":"be bold","category":"Courage"}]`, added: 1, updated: 1},
		{name: "not a list", input: `{"text":"Stay calm","category":"Zen"}`, wantErr: true},
		{name: "missing category", input: `[{"text":"Stay calm","category":"Zen"},{"text":"Oops"}]`, wantErr: true},
		{name: "garbage", input: `not json`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, seed)
			result, err := c.Import([]byte(tt.input), records.FormatJSON)
			if tt.wantErr {
				assert.True(t, errors.IsMalformedImport(err))
				assert.Equal(t, seed, c.All())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.added, result.Added)
			assert.Equal(t, tt.updated, result.Updated)
		})
	}
}

func TestExportImportYAML(t *testing.T) {
	c, _ := newTestClient(t, records.Defaults())
	data, err := c.Export(records.FormatYAML)
	require.NoError(t, err)

	other, _ := newTestClient(t, nil)
	result, err := other.Import(data, records.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, len(records.Defaults()), result.Added)
	assert.Equal(t, c.All(), other.All())
}

func TestFilterAndDisplay(t *testing.T) {
	c, _ := newTestClient(t, records.Collection{
		{Text: "Be bold", Category: "Motivation"},
		{Text: "Stay calm", Category: "Zen"},
	})

	assert.Equal(t, []string{"Motivation", "Zen"}, c.Categories())
	assert.Equal(t, constants.AllCategories, c.Filter())

	require.NoError(t, c.SetFilter("Zen"))
	assert.Equal(t, "Zen", c.Filter())
	assert.Equal(t, records.Collection{{Text: "Stay calm", Category: "Zen"}}, c.Filtered())

	rec, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, "Stay calm", rec.Text)

	require.NoError(t, c.SetFilter(""))
	for range 10 {
		current, err := c.Current()
		require.NoError(t, err)
		assert.Equal(t, rec, current)
	}

	require.NoError(t, c.SetFilter("Nothing"))
	require.NoError(t, c.Remove("stay calm"))
	_, err = c.Current()
	assert.True(t, errors.IsNotFound(err))
}

func TestAutoSync(t *testing.T) {
	c, rc := newTestClient(t, nil, WithSyncInterval(time.Hour))

	passes := make(chan struct{}, 1)
	rc.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, int) ([]records.Record, error) {
			passes <- struct{}{}
			return nil, nil
		}).Times(1)

	require.NoError(t, c.AutoSyncOn())
	require.NoError(t, c.AutoSyncOn())
	assert.True(t, c.AutoSyncRunning())

	select {
	case <-passes:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled pass did not run")
	}

	c.AutoSyncOff()
	c.AutoSyncOff()
	assert.False(t, c.AutoSyncRunning())
	<-c.scheduler.Done()
}

func TestNewValidatesOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{name: "limit too large", opt: WithRemoteLimit(constants.MaxRemoteLimit + 1)},
		{name: "limit zero", opt: WithRemoteLimit(0)},
		{name: "interval", opt: WithSyncInterval(0)},
		{name: "policy", opt: WithPolicy(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opt)
			assert.Error(t, err)
		})
	}
}
