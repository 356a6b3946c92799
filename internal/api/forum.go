// CLAUDE:SUMMARY Forum HTTP handlers — question/answer CRUD, voting and answer acceptance endpoints
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/prajwalreddypr/Expat-Ease/internal/db"
)

var validCategories = map[string]bool{
	"housing": true, "banking": true, "legal": true, "work": true,
	"education": true, "healthcare": true, "transportation": true,
	"social": true, "general": true,
}

func (a *API) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	q := r.URL.Query()
	category := q.Get("category")
	if category != "" && !validCategories[category] {
		jsonError(w, "unknown category", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	questions, err := a.db.ListQuestions(category, limit, offset)
	if err != nil {
		dbError(w, err, "listing questions")
		return
	}
	jsonResp(w, http.StatusOK, questions)
}

func (a *API) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req struct {
		Title    string `json:"title"`
		Content  string `json:"content"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		jsonError(w, "title and content are required", http.StatusBadRequest)
		return
	}
	if req.Category != "" && !validCategories[req.Category] {
		jsonError(w, "unknown category", http.StatusBadRequest)
		return
	}

	question, err := a.db.CreateQuestion(db.CreateQuestionInput{
		AuthorID: claims.UserID,
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
	})
	if err != nil {
		dbError(w, err, "creating question")
		return
	}
	a.auditEvent("create_question", claims.UserID, map[string]int64{"question_id": question.ID}, nil)
	jsonResp(w, http.StatusCreated, question)
}

// handleGetQuestion returns the full thread and counts the view.
func (a *API) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	id, ok := pathID(r)
	if !ok {
		jsonError(w, "invalid question id", http.StatusBadRequest)
		return
	}
	question, err := a.db.GetQuestion(id)
	if err != nil {
		dbError(w, err, "loading question")
		return
	}
	jsonResp(w, http.StatusOK, question)
}

func (a *API) handleCreateAnswer(w http.ResponseWriter, r *http.Request) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	id, ok := pathID(r)
	if !ok {
		jsonError(w, "invalid question id", http.StatusBadRequest)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		jsonError(w, "content is required", http.StatusBadRequest)
		return
	}

	answer, err := a.db.CreateAnswer(id, claims.UserID, req.Content)
	if err != nil {
		dbError(w, err, "creating answer")
		return
	}
	a.auditEvent("create_answer", claims.UserID, map[string]int64{"question_id": id, "answer_id": answer.ID}, nil)
	jsonResp(w, http.StatusCreated, answer)
}

func (a *API) handleVoteQuestion(w http.ResponseWriter, r *http.Request) {
	a.handleVote(w, r, "question")
}

func (a *API) handleVoteAnswer(w http.ResponseWriter, r *http.Request) {
	a.handleVote(w, r, "answer")
}

// handleVote casts or flips a vote; repeating the same vote is a no-op. The
// response carries the recomputed tally.
func (a *API) handleVote(w http.ResponseWriter, r *http.Request, target string) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	id, ok := pathID(r)
	if !ok {
		jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req struct {
		IsUpvote *bool `json:"is_upvote"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsUpvote == nil {
		jsonError(w, "is_upvote is required", http.StatusBadRequest)
		return
	}

	var err error
	var up, down int
	if target == "question" {
		err = a.db.VoteQuestion(id, claims.UserID, *req.IsUpvote)
		if err == nil {
			up, down, err = a.db.QuestionTally(id)
		}
	} else {
		err = a.db.VoteAnswer(id, claims.UserID, *req.IsUpvote)
		if err == nil {
			up, down, err = a.db.AnswerTally(id)
		}
	}
	if err != nil {
		dbError(w, err, "casting vote")
		return
	}
	a.auditEvent("vote_"+target, claims.UserID, map[string]any{"id": id, "is_upvote": *req.IsUpvote}, nil)
	jsonResp(w, http.StatusOK, map[string]int{"upvotes": up, "downvotes": down})
}

func (a *API) handleAcceptAnswer(w http.ResponseWriter, r *http.Request) {
	claims := a.requireAuth(w, r)
	if claims == nil {
		return
	}
	id, ok := pathID(r)
	if !ok {
		jsonError(w, "invalid answer id", http.StatusBadRequest)
		return
	}
	if err := a.db.AcceptAnswer(id, claims.UserID); err != nil {
		dbError(w, err, "accepting answer")
		return
	}
	a.auditEvent("accept_answer", claims.UserID, map[string]int64{"answer_id": id}, nil)
	jsonResp(w, http.StatusOK, map[string]string{"message": "answer accepted"})
}
