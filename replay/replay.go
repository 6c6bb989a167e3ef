// Package replay feeds recorded transitions through a match so that training
// rewards can be reproduced offline.
package replay

import (
	"errors"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/immortal/arena"
)

var (
	ErrNoFrames     = errors.New("recording has no frames")
	ErrDuplicateCar = errors.New("car appears twice in one frame")
	ErrOutOfOrder   = errors.New("frame out of order")
	ErrBadBoostPads = errors.New("malformed boost pad column")
)

// Row is one car at one tick of a recording.
type Row struct {
	Episode int `csv:"episode"`
	Tick    int `csv:"tick"`
	CarID   int `csv:"car_id"`
	Team    int `csv:"team"`
	Action  int `csv:"action"`

	CarX  float64 `csv:"car_x"`
	CarY  float64 `csv:"car_y"`
	CarZ  float64 `csv:"car_z"`
	CarVX float64 `csv:"car_vx"`
	CarVY float64 `csv:"car_vy"`
	CarVZ float64 `csv:"car_vz"`

	CarAVX float64 `csv:"car_avx"`
	CarAVY float64 `csv:"car_avy"`
	CarAVZ float64 `csv:"car_avz"`
	FwdX   float64 `csv:"forward_x"`
	FwdY   float64 `csv:"forward_y"`
	FwdZ   float64 `csv:"forward_z"`
	UpX    float64 `csv:"up_x"`
	UpY    float64 `csv:"up_y"`
	UpZ    float64 `csv:"up_z"`

	OnGround    bool    `csv:"on_ground"`
	BallTouched bool    `csv:"ball_touched"`
	HasFlip     bool    `csv:"has_flip"`
	IsDemoed    bool    `csv:"is_demoed"`
	Goals       int     `csv:"goals"`
	Saves       int     `csv:"saves"`
	Shots       int     `csv:"shots"`
	Demos       int     `csv:"demos"`
	Boost       float64 `csv:"boost"`

	BallX  float64 `csv:"ball_x"`
	BallY  float64 `csv:"ball_y"`
	BallZ  float64 `csv:"ball_z"`
	BallVX float64 `csv:"ball_vx"`
	BallVY float64 `csv:"ball_vy"`
	BallVZ float64 `csv:"ball_vz"`

	BallAVX float64 `csv:"ball_avx"`
	BallAVY float64 `csv:"ball_avy"`
	BallAVZ float64 `csv:"ball_avz"`

	// BoostPads is one '1' or '0' per pad in arena order; empty if unrecorded.
	BoostPads string `csv:"boost_pads"`

	BlueScore   int `csv:"blue_score"`
	OrangeScore int `csv:"orange_score"`
}

func (r *Row) player() arena.PlayerData {
	return arena.PlayerData{
		CarID:           r.CarID,
		TeamNum:         r.Team,
		MatchGoals:      r.Goals,
		MatchSaves:      r.Saves,
		MatchShots:      r.Shots,
		MatchDemolishes: r.Demos,
		OnGround:        r.OnGround,
		BallTouched:     r.BallTouched,
		HasFlip:         r.HasFlip,
		IsDemoed:        r.IsDemoed,
		BoostAmount:     r.Boost,
		CarData: arena.PhysicsObject{
			Position:        r3.Vec{X: r.CarX, Y: r.CarY, Z: r.CarZ},
			LinearVelocity:  r3.Vec{X: r.CarVX, Y: r.CarVY, Z: r.CarVZ},
			AngularVelocity: r3.Vec{X: r.CarAVX, Y: r.CarAVY, Z: r.CarAVZ},
			Forward:         r3.Vec{X: r.FwdX, Y: r.FwdY, Z: r.FwdZ},
			Up:              r3.Vec{X: r.UpX, Y: r.UpY, Z: r.UpZ},
		},
	}
}

// Frame is the full state at one tick plus the action each car took from it.
type Frame struct {
	Episode int
	State   *arena.GameState
	Actions map[int]int // car id -> action index
}

// boostPads parses the pad column.
func boostPads(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	if len(s) != arena.BoostPadCount {
		return nil, fmt.Errorf("%w: %d boost pads, want %d", ErrBadBoostPads, len(s), arena.BoostPadCount)
	}
	pads := make([]float64, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '1':
			pads[i] = 1
		case '0':
		default:
			return nil, fmt.Errorf("%w: pad %d is %q", ErrBadBoostPads, i, s[i])
		}
	}
	return pads, nil
}

func newFrame(r *Row) (Frame, error) {
	pads, err := boostPads(r.BoostPads)
	if err != nil {
		return Frame{}, fmt.Errorf("episode %d tick %d: %w", r.Episode, r.Tick, err)
	}
	return Frame{
		Episode: r.Episode,
		State: &arena.GameState{
			Tick:        r.Tick,
			BlueScore:   r.BlueScore,
			OrangeScore: r.OrangeScore,
			LastTouch:   -1,
			Ball: arena.PhysicsObject{
				Position:        r3.Vec{X: r.BallX, Y: r.BallY, Z: r.BallZ},
				LinearVelocity:  r3.Vec{X: r.BallVX, Y: r.BallVY, Z: r.BallVZ},
				AngularVelocity: r3.Vec{X: r.BallAVX, Y: r.BallAVY, Z: r.BallAVZ},
			},
			BoostPads: pads,
		},
		Actions: make(map[int]int),
	}, nil
}

// Load parses a recording and groups consecutive rows sharing (episode,
// tick) into frames. Ball, score and boost pad columns are taken from the
// first row of each group.
func Load(r io.Reader) ([]Frame, error) {
	var rows []Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parsing recording: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoFrames
	}

	var frames []Frame
	for i := range rows {
		row := &rows[i]
		n := len(frames)
		if n == 0 || frames[n-1].Episode != row.Episode || frames[n-1].State.Tick != row.Tick {
			if n > 0 && frames[n-1].Episode == row.Episode && row.Tick < frames[n-1].State.Tick {
				return nil, fmt.Errorf("%w: row %d tick %d after %d", ErrOutOfOrder, i+1, row.Tick, frames[n-1].State.Tick)
			}
			f, err := newFrame(row)
			if err != nil {
				return nil, err
			}
			frames = append(frames, f)
			n++
		}

		f := &frames[n-1]
		if _, ok := f.Actions[row.CarID]; ok {
			return nil, fmt.Errorf("%w: car %d at episode %d tick %d", ErrDuplicateCar, row.CarID, row.Episode, row.Tick)
		}
		f.Actions[row.CarID] = row.Action
		f.State.Players = append(f.State.Players, row.player())
		if row.BallTouched {
			f.State.LastTouch = row.CarID
		}
	}
	return frames, nil
}
