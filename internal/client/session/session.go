// Package session holds the interactive client's state between commands.
package session

import "chesscoach/internal/client/api"

type Session struct {
	APIBaseURL      string
	Client          *api.Client
	Verbose         bool
	AuthToken       string
	UserID          string
	Username        string
	CurrentTraining string
	Training        *api.TrainingResponse
	// from-square of the last hint, cleared on every move
	HintSquare string
}

func New(baseURL string) *Session {
	return &Session{
		APIBaseURL: baseURL,
		Client:     api.New(baseURL),
	}
}

// SetAuth stores credentials and hands the token to the API client
func (s *Session) SetAuth(token, userID, username string) {
	s.AuthToken = token
	s.UserID = userID
	s.Username = username
	s.Client.SetToken(token)
}

func (s *Session) ClearAuth() {
	s.SetAuth("", "", "")
}

// SetTraining makes t the current training
func (s *Session) SetTraining(t *api.TrainingResponse) {
	s.Training = t
	s.HintSquare = ""
	if t != nil {
		s.CurrentTraining = t.TrainingID
	}
}

// FlipBoard reports whether the user plays black in the current puzzle
func (s *Session) FlipBoard() bool {
	return s.Training != nil && s.Training.UserSide == "black"
}
