package rps

import "fmt"

// Move is a hand shape. The zero value means "not revealed".
type Move uint8

const (
	Rock     Move = 1
	Paper    Move = 2
	Scissors Move = 3
)

// Valid reports whether m is one of the three shapes.
func (m Move) Valid() bool { return m >= Rock && m <= Scissors }

func (m Move) String() string {
	switch m {
	case Rock:
		return "rock"
	case Paper:
		return "paper"
	case Scissors:
		return "scissors"
	case 0:
		return "none"
	default:
		return fmt.Sprintf("move(%d)", uint8(m))
	}
}

// ParseMove accepts a shape name or its first letter.
func ParseMove(s string) (Move, error) {
	switch s {
	case "rock", "r", "R", "Rock":
		return Rock, nil
	case "paper", "p", "P", "Paper":
		return Paper, nil
	case "scissors", "s", "S", "Scissors":
		return Scissors, nil
	}
	return 0, fmt.Errorf("unknown move %q", s)
}

// Beats reports whether m defeats o: rock beats scissors, scissors beats
// paper, paper beats rock.
func (m Move) Beats(o Move) bool {
	return m.Valid() && o.Valid() && (int(m)-int(o)+3)%3 == 1
}

// Outcome is the result of a settled game.
type Outcome uint8

const (
	OutcomeNone Outcome = iota
	Player1Wins
	Player2Wins
	Draw
)

func (o Outcome) String() string {
	switch o {
	case Player1Wins:
		return "player1_wins"
	case Player2Wins:
		return "player2_wins"
	case Draw:
		return "draw"
	default:
		return "none"
	}
}

// Resolve decides a game from the two revealed moves. The result depends
// only on the moves.
func Resolve(m1, m2 Move) Outcome {
	switch {
	case m1 == m2:
		return Draw
	case m1.Beats(m2):
		return Player1Wins
	default:
		return Player2Wins
	}
}
