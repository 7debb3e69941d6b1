package chuusen

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRunRecord(runID string) *RunRecord {
	now := time.Now().Unix()
	return &RunRecord{
		RunID: runID,
		Input: smallInput(),
		Result: &AggregateResult{
			ProbabilityOfWinning:    map[int]float64{8: 0.01, 12: 0.02},
			ProbabilityRateOfChange: map[int]float64{12: 0.01},
			WinnerProfile:           Distribution{{Label: "8-12", Lower: 8, Upper: 12, Percentage: 100}},
			ApplicantDistribution:   Distribution{{Label: "5-15", Lower: 5, Upper: 15, Percentage: 100}},
			AvgBallotsPerWinner:     10.5,
			MedianBallotsPerWinner:  10,
			ModeBallotsPerWinner:    10,
			ChannelAnalysis:         map[int]ChannelOutcome{0: {YouWonCount: 1, TotalWinners: 500}, 1: {TotalWinners: 500}},
			YouWinCount:             1,
			TotalPeopleInPool:       201,
		},
		State:      StateCompleted,
		StartTime:  now - 3,
		FinishTime: now,
	}
}

func TestRunRecordSerialization(t *testing.T) {
	record := sampleRunRecord("run-1")

	data, err := serializeRunRecord(record)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":"completed"`)

	decoded, err := deserializeRunRecord(data)
	require.NoError(t, err)
	assert.Equal(t, record, decoded)

	t.Run("nil record", func(t *testing.T) {
		_, err := serializeRunRecord(nil)
		assert.ErrorIs(t, err, ErrSerializationFailed)
	})

	t.Run("invalid record", func(t *testing.T) {
		_, err := serializeRunRecord(&RunRecord{})
		assert.ErrorIs(t, err, ErrStateCorrupted)
	})

	t.Run("malformed data", func(t *testing.T) {
		_, err := deserializeRunRecord([]byte("{"))
		assert.ErrorIs(t, err, ErrDeserializationFailed)

		_, err = deserializeRunRecord([]byte(`{"run_id":"x","state":"paused"}`))
		assert.Error(t, err)
	})
}

func TestParseRunKey(t *testing.T) {
	id, err := parseRunKey(runKey("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	_, err = parseRunKey("chuusen:run:")
	assert.Error(t, err)
	_, err = parseRunKey("other:abc")
	assert.Error(t, err)
}

func TestResultStore_SaveRun(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	store := NewResultStore(db, testStoreConfig(), NewSilentLogger())
	ctx := context.Background()

	t.Run("保存运行记录", func(t *testing.T) {
		mock.Regexp().ExpectSet(`chuusen:run:run-1`, `.*`, DefaultResultTTL).SetVal("OK")
		mock.ExpectSet(LatestRunKey, "run-1", DefaultResultTTL).SetVal("OK")

		require.NoError(t, store.SaveRun(ctx, sampleRunRecord("run-1")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid record is rejected before Redis", func(t *testing.T) {
		err := store.SaveRun(ctx, &RunRecord{RunID: "bad"})
		assert.ErrorIs(t, err, ErrStateCorrupted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis failure", func(t *testing.T) {
		mock.Regexp().ExpectSet(`chuusen:run:run-2`, `.*`, DefaultResultTTL).SetErr(errors.New("OOM command not allowed"))

		err := store.SaveRun(ctx, sampleRunRecord("run-2"))
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "chuusen:run:run-2"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis deadline", func(t *testing.T) {
		mock.Regexp().ExpectSet(`chuusen:run:run-3`, `.*`, DefaultResultTTL).SetErr(context.DeadlineExceeded)

		err := store.SaveRun(ctx, sampleRunRecord("run-3"))
		assert.ErrorIs(t, err, ErrRedisTimeout)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.True(t, IsRetryableError(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestResultStore_LoadRun(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	store := NewResultStore(db, testStoreConfig(), NewSilentLogger())
	ctx := context.Background()

	record := sampleRunRecord("run-1")
	data, err := serializeRunRecord(record)
	require.NoError(t, err)

	tests := []struct {
		name      string
		runID     string
		mockSetup func()
		wantErr   error
	}{
		{
			name:      "existing run",
			runID:     "run-1",
			mockSetup: func() { mock.ExpectGet(runKey("run-1")).SetVal(string(data)) },
		},
		{
			name:      "missing run",
			runID:     "run-9",
			mockSetup: func() { mock.ExpectGet(runKey("run-9")).RedisNil() },
			wantErr:   ErrResultNotFound,
		},
		{
			name:      "corrupted record",
			runID:     "run-3",
			mockSetup: func() { mock.ExpectGet(runKey("run-3")).SetVal(`{"run_id":"run-3"}`) },
			wantErr:   ErrStateCorrupted,
		},
		{
			name:      "empty id",
			runID:     "",
			mockSetup: func() {},
			wantErr:   ErrResultNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()

			got, err := store.LoadRun(ctx, tt.runID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, record, got)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
			mock.ClearExpect()
		})
	}
}

func TestResultStore_LoadLatestRun(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	store := NewResultStore(db, testStoreConfig(), NewSilentLogger())
	ctx := context.Background()

	t.Run("nothing archived", func(t *testing.T) {
		mock.ExpectGet(LatestRunKey).RedisNil()

		_, err := store.LoadLatestRun(ctx)
		assert.ErrorIs(t, err, ErrResultNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("latest run", func(t *testing.T) {
		record := sampleRunRecord("run-7")
		data, err := serializeRunRecord(record)
		require.NoError(t, err)

		mock.ExpectGet(LatestRunKey).SetVal("run-7")
		mock.ExpectGet(runKey("run-7")).SetVal(string(data))

		got, err := store.LoadLatestRun(ctx)
		require.NoError(t, err)
		assert.Equal(t, "run-7", got.RunID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("latest run expired", func(t *testing.T) {
		mock.ExpectGet(LatestRunKey).SetVal("run-8")
		mock.ExpectGet(runKey("run-8")).RedisNil()

		_, err := store.LoadLatestRun(ctx)
		assert.ErrorIs(t, err, ErrResultNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestResultStore_ListAndDelete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	store := NewResultStore(db, testStoreConfig(), NewSilentLogger())
	ctx := context.Background()

	t.Run("list sorts ids and skips bad keys", func(t *testing.T) {
		mock.ExpectKeys("chuusen:run:*").SetVal([]string{"chuusen:run:b", "chuusen:run:a", "chuusen:run:"})

		ids, err := store.ListRuns(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("list failure", func(t *testing.T) {
		mock.ExpectKeys("chuusen:run:*").SetErr(errors.New("ERR keys disabled"))

		_, err := store.ListRuns(ctx)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete", func(t *testing.T) {
		mock.ExpectDel(runKey("a")).SetVal(1)
		mock.ExpectDel(runKey("gone")).SetVal(0)

		assert.NoError(t, store.DeleteRun(ctx, "a"))
		assert.NoError(t, store.DeleteRun(ctx, "gone"))
		assert.ErrorIs(t, store.DeleteRun(ctx, ""), ErrResultNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
