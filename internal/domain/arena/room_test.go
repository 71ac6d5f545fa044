package arena

import (
	"errors"
	"testing"
	"time"
	"duel_arena/internal/common"
	"duel_arena/internal/domain/model"
)

func testSet() []*ProblemSet {
	return []*ProblemSet{{
		ProblemID:    "p1",
		Difficulty:   model.DifficultyEasy,
		Tests:        []Test{{Input: "1 2", ExpectedOutput: "3"}},
		TestBudgetMs: 1000,
	}}
}

func duelRoom(t *testing.T) (*Registry, *Room) {
	t.Helper()
	reg := NewRegistry()
	room, err := reg.Create("", Participant{ConnID: "c1", UserID: "u1", Name: "alice"}, RoomConfig{TimeLimit: time.Hour})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := reg.Join(room.ID, Participant{ConnID: "c2", UserID: "u2", Name: "bob"}); err != nil {
		t.Fatalf("Join: %v", err)
	}
	return reg, room
}

func startedRoom(t *testing.T) (*Registry, *Room) {
	t.Helper()
	reg, room := duelRoom(t)
	if err := room.Start("u1", testSet(), func() {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return reg, room
}

func TestCreateGeneratesRoomCode(t *testing.T) {
	reg := NewRegistry()
	room, err := reg.Create("", Participant{ConnID: "c1", UserID: "u1"}, RoomConfig{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(room.ID) != 8 {
		t.Fatalf("expected 8-char room code, got %q", room.ID)
	}
}

func TestCreateRejectsTakenID(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Create("ROOM1", Participant{ConnID: "c1", UserID: "u1"}, RoomConfig{}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := reg.Create("ROOM1", Participant{ConnID: "c2", UserID: "u2"}, RoomConfig{})
	if !errors.Is(err, common.ErrRoomIDTaken) {
		t.Fatalf("expected ErrRoomIDTaken, got %v", err)
	}
}

func TestJoinFullRoom(t *testing.T) {
	reg, room := duelRoom(t)
	_, err := reg.Join(room.ID, Participant{ConnID: "c3", UserID: "u3"})
	if !errors.Is(err, common.ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
}

func TestJoinAfterStartRejected(t *testing.T) {
	reg, room := startedRoom(t)
	_, err := reg.Join(room.ID, Participant{ConnID: "c3", UserID: "u3"})
	if !errors.Is(err, common.ErrMatchStarted) {
		t.Fatalf("expected ErrMatchStarted, got %v", err)
	}
}

func TestRejoinRebindsConnection(t *testing.T) {
	reg, room := duelRoom(t)
	if _, err := reg.Join(room.ID, Participant{ConnID: "c2b", UserID: "u2", Name: "bob"}); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	participants := room.Participants()
	if len(participants) != 2 {
		t.Fatalf("expected 2 participants after rejoin, got %d", len(participants))
	}
	if participants[1].ConnID != "c2b" {
		t.Fatalf("expected rebound connection c2b, got %s", participants[1].ConnID)
	}
}

func TestStartRequiresHost(t *testing.T) {
	_, room := duelRoom(t)
	if err := room.Start("u2", testSet(), func() {}); !errors.Is(err, common.ErrNotHost) {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
}

func TestStartRequiresTwoPlayers(t *testing.T) {
	reg := NewRegistry()
	room, _ := reg.Create("", Participant{ConnID: "c1", UserID: "u1"}, RoomConfig{TimeLimit: time.Hour})
	if err := room.Start("u1", testSet(), func() {}); !errors.Is(err, common.ErrNotEnoughPlayers) {
		t.Fatalf("expected ErrNotEnoughPlayers, got %v", err)
	}
}

func TestDoubleStartRejected(t *testing.T) {
	_, room := startedRoom(t)
	if err := room.Start("u1", testSet(), func() {}); !errors.Is(err, common.ErrMatchStarted) {
		t.Fatalf("expected ErrMatchStarted, got %v", err)
	}
}

func TestStartFreezesRoster(t *testing.T) {
	_, room := startedRoom(t)
	room.removeParticipant("c2")
	roster := room.Roster()
	if len(roster) != 2 {
		t.Fatalf("roster should keep the leaver, got %d members", len(roster))
	}
	if side := room.SideOf("u2"); side != model.WinnerB {
		t.Fatalf("expected leaver to keep slot B, got %q", side)
	}
}

func TestCheckSubmittable(t *testing.T) {
	_, room := duelRoom(t)
	if err := room.CheckSubmittable("u1"); !errors.Is(err, common.ErrMatchNotStarted) {
		t.Fatalf("expected ErrMatchNotStarted, got %v", err)
	}

	if err := room.Start("u1", testSet(), func() {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := room.CheckSubmittable("u1"); err != nil {
		t.Fatalf("CheckSubmittable in progress: %v", err)
	}
	if err := room.CheckSubmittable("intruder"); !errors.Is(err, common.ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}

	room.Settle(Outcome{WinnerSide: model.WinnerDraw, Reason: model.ReasonTimeUp})
	if err := room.CheckSubmittable("u1"); !errors.Is(err, common.ErrMatchFinished) {
		t.Fatalf("expected ErrMatchFinished, got %v", err)
	}
}

func TestRecordResultAfterSettleRejected(t *testing.T) {
	_, room := startedRoom(t)
	room.Settle(Outcome{WinnerUserID: "u1", WinnerSide: model.WinnerA, Reason: model.ReasonFirstAccepted})

	err := room.RecordResult("u2", &Attempt{SubmissionID: "s1", PassedCount: 1, TotalCount: 1, CompletedAt: time.Now()})
	if !errors.Is(err, common.ErrMatchFinished) {
		t.Fatalf("expected ErrMatchFinished, got %v", err)
	}
}

func TestSettleIsIdempotent(t *testing.T) {
	_, room := startedRoom(t)
	first := room.Settle(Outcome{WinnerUserID: "u1", WinnerSide: model.WinnerA, Reason: model.ReasonFirstAccepted})
	second := room.Settle(Outcome{WinnerUserID: "u2", WinnerSide: model.WinnerB, Reason: model.ReasonTimeUp})

	if !first || second {
		t.Fatalf("expected first settle to win, got first=%v second=%v", first, second)
	}
	outcome := room.Outcome()
	if outcome == nil || outcome.WinnerUserID != "u1" || outcome.Reason != model.ReasonFirstAccepted {
		t.Fatalf("outcome overwritten by second settle: %+v", outcome)
	}
	if room.Status() != StatusFinished {
		t.Fatalf("expected finished status, got %s", room.Status())
	}
}

func TestSettleCancelsTimer(t *testing.T) {
	_, room := duelRoom(t)
	fired := make(chan struct{}, 1)
	if err := room.Start("u1", testSet(), func() { fired <- struct{}{} }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	room.Settle(Outcome{WinnerUserID: "u1", WinnerSide: model.WinnerA, Reason: model.ReasonFirstAccepted})

	select {
	case <-fired:
		t.Fatal("timeout fired after settlement")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTimerFires(t *testing.T) {
	reg := NewRegistry()
	room, _ := reg.Create("", Participant{ConnID: "c1", UserID: "u1"}, RoomConfig{TimeLimit: 20 * time.Millisecond})
	if _, err := reg.Join(room.ID, Participant{ConnID: "c2", UserID: "u2"}); err != nil {
		t.Fatalf("Join: %v", err)
	}
	fired := make(chan struct{}, 1)
	if err := room.Start("u1", testSet(), func() { fired <- struct{}{} }); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timeout never fired")
	}
}

func attempt(passed, total int, at time.Time) *Attempt {
	return &Attempt{SubmissionID: "s", PassedCount: passed, TotalCount: total, CompletedAt: at}
}

func TestDecideWinnerFullAcceptBeatsPartial(t *testing.T) {
	_, room := startedRoom(t)
	now := time.Now()
	room.RecordResult("u1", attempt(1, 3, now))
	room.RecordResult("u2", attempt(3, 3, now.Add(time.Second)))

	outcome := room.DecideWinner()
	if outcome.WinnerUserID != "u2" || outcome.WinnerSide != model.WinnerB {
		t.Fatalf("expected u2/B to win, got %+v", outcome)
	}
}

func TestDecideWinnerByPassedCount(t *testing.T) {
	_, room := startedRoom(t)
	now := time.Now()
	room.RecordResult("u1", attempt(2, 3, now))
	room.RecordResult("u2", attempt(1, 3, now))

	outcome := room.DecideWinner()
	if outcome.WinnerUserID != "u1" || outcome.WinnerSide != model.WinnerA {
		t.Fatalf("expected u1/A to win, got %+v", outcome)
	}
}

func TestDecideWinnerByFewerAttempts(t *testing.T) {
	_, room := startedRoom(t)
	now := time.Now()
	room.RecordResult("u1", attempt(2, 3, now))
	room.RecordResult("u1", attempt(2, 3, now.Add(time.Second)))
	room.RecordResult("u2", attempt(2, 3, now.Add(2*time.Second)))

	outcome := room.DecideWinner()
	if outcome.WinnerUserID != "u2" {
		t.Fatalf("expected u2 to win with fewer attempts, got %+v", outcome)
	}
}

func TestDecideWinnerByEarlierCompletion(t *testing.T) {
	_, room := startedRoom(t)
	now := time.Now()
	room.RecordResult("u1", attempt(2, 3, now.Add(time.Second)))
	room.RecordResult("u2", attempt(2, 3, now))

	outcome := room.DecideWinner()
	if outcome.WinnerUserID != "u2" {
		t.Fatalf("expected u2 to win on earlier completion, got %+v", outcome)
	}
}

func TestDecideWinnerDrawWithoutSubmissions(t *testing.T) {
	_, room := startedRoom(t)
	outcome := room.DecideWinner()
	if outcome.WinnerSide != model.WinnerDraw || outcome.WinnerUserID != "" {
		t.Fatalf("expected draw, got %+v", outcome)
	}
}

func TestBestAttemptKeptAcrossRegressions(t *testing.T) {
	_, room := startedRoom(t)
	now := time.Now()
	room.RecordResult("u1", attempt(2, 3, now))
	room.RecordResult("u1", attempt(0, 3, now.Add(time.Second))) // regressed resubmission

	res := room.ResultOf("u1")
	if res.Best.PassedCount != 2 {
		t.Fatalf("best attempt lost: %+v", res.Best)
	}
	if res.Latest.PassedCount != 0 {
		t.Fatalf("latest attempt not updated: %+v", res.Latest)
	}
	if res.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", res.Attempts)
	}
}

func TestLeaveWaitingRoomDestroysWhenEmpty(t *testing.T) {
	reg := NewRegistry()
	room, _ := reg.Create("", Participant{ConnID: "c1", UserID: "u1"}, RoomConfig{})
	if _, _, _, _, ok := reg.Leave("c1"); !ok {
		t.Fatal("Leave: connection not found")
	}
	if reg.Get(room.ID) != nil {
		t.Fatal("empty waiting room should be destroyed")
	}
}

func TestLeaveUnknownConnection(t *testing.T) {
	reg := NewRegistry()
	if _, _, _, _, ok := reg.Leave("ghost"); ok {
		t.Fatal("expected ok=false for unknown connection")
	}
}

func TestTeamRoomBalancesSides(t *testing.T) {
	reg := NewRegistry()
	cfg := RoomConfig{TimeLimit: time.Hour, Team: true, RosterSize: 2}
	room, _ := reg.Create("", Participant{ConnID: "c1", UserID: "u1"}, cfg)
	for _, p := range []Participant{
		{ConnID: "c2", UserID: "u2"},
		{ConnID: "c3", UserID: "u3"},
		{ConnID: "c4", UserID: "u4"},
	} {
		if _, err := reg.Join(room.ID, p); err != nil {
			t.Fatalf("Join %s: %v", p.UserID, err)
		}
	}

	var a, b int
	for _, p := range room.Participants() {
		switch p.TeamSide {
		case model.WinnerA:
			a++
		case model.WinnerB:
			b++
		}
	}
	if a != 2 || b != 2 {
		t.Fatalf("expected balanced sides, got A=%d B=%d", a, b)
	}
	if side := room.SideOf("u1"); side != model.WinnerA {
		t.Fatalf("expected host on side A, got %q", side)
	}

	if err := room.Start("u1", testSet(), func() {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func TestTeamRoomStartNeedsFullRoster(t *testing.T) {
	reg := NewRegistry()
	cfg := RoomConfig{TimeLimit: time.Hour, Team: true, RosterSize: 2}
	room, _ := reg.Create("", Participant{ConnID: "c1", UserID: "u1"}, cfg)
	if _, err := reg.Join(room.ID, Participant{ConnID: "c2", UserID: "u2"}); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := room.Start("u1", testSet(), func() {}); !errors.Is(err, common.ErrNotEnoughPlayers) {
		t.Fatalf("expected ErrNotEnoughPlayers, got %v", err)
	}
}
