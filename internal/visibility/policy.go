// Package visibility decides what each role may see or change, and projects
// quizzes into the views those roles receive.
package visibility

import "github.com/pavelanni/tutorquiz/internal/model"

// Access is the level of access a viewer has to a quiz.
type Access int

const (
	// Deny means the viewer may not see the quiz at all.
	Deny Access = iota
	// Redacted means the viewer sees the quiz without its answer key.
	Redacted
	// Full means the viewer sees everything, including correct answers.
	Full
)

func (a Access) String() string {
	switch a {
	case Full:
		return "full"
	case Redacted:
		return "redacted"
	}
	return "deny"
}

// Subject describes the caller's relation to the quiz being accessed.
type Subject struct {
	Actor   model.Actor
	IsOwner bool
}

// rules is the complete role table. A role missing from it is denied everything.
type rules struct {
	view         func(q model.Quiz, s Subject) Access
	manage       func(s Subject) bool
	viewResults  func(s Subject) bool
	submit       bool
	viewAttempts func(a model.Attempt, s Subject) bool
}

var policy = map[model.Role]rules{
	model.RoleStudent: {
		view: func(q model.Quiz, _ Subject) Access {
			if q.IsPublished {
				return Redacted
			}
			return Deny
		},
		manage:      func(Subject) bool { return false },
		viewResults: func(Subject) bool { return false },
		submit:      true,
		viewAttempts: func(a model.Attempt, s Subject) bool {
			return a.StudentID == s.Actor.UserID
		},
	},
	model.RoleTutor: {
		view: func(_ model.Quiz, s Subject) Access {
			if s.IsOwner {
				return Full
			}
			return Deny
		},
		manage:      func(s Subject) bool { return s.IsOwner },
		viewResults: func(s Subject) bool { return s.IsOwner },
		viewAttempts: func(_ model.Attempt, s Subject) bool {
			return s.IsOwner
		},
	},
	model.RoleAdmin: {
		view:         func(model.Quiz, Subject) Access { return Full },
		manage:       func(Subject) bool { return true },
		viewResults:  func(Subject) bool { return true },
		viewAttempts: func(model.Attempt, Subject) bool { return true },
	},
}

// QuizAccess returns how much of the quiz the subject may see.
func QuizAccess(q model.Quiz, s Subject) Access {
	r, ok := policy[s.Actor.Role]
	if !ok {
		return Deny
	}
	return r.view(q, s)
}

// CanManage reports whether the subject may create, edit, publish or delete
// quizzes of the course it relates to.
func CanManage(s Subject) bool {
	r, ok := policy[s.Actor.Role]
	return ok && r.manage(s)
}

// CanViewResults reports whether the subject may see every attempt on a quiz.
func CanViewResults(s Subject) bool {
	r, ok := policy[s.Actor.Role]
	return ok && r.viewResults(s)
}

// CanSubmit reports whether the role takes quizzes.
func CanSubmit(role model.Role) bool {
	r, ok := policy[role]
	return ok && r.submit
}

// CanViewAttempt reports whether the subject may read a single attempt.
// IsOwner refers to ownership of the attempt's quiz.
func CanViewAttempt(a model.Attempt, s Subject) bool {
	r, ok := policy[s.Actor.Role]
	return ok && r.viewAttempts(a, s)
}

// ListsUnpublished reports whether the role sees unpublished quizzes when
// listing a course.
func ListsUnpublished(role model.Role) bool {
	return role == model.RoleTutor || role == model.RoleAdmin
}
