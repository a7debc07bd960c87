package inmemdb

import (
	"strings"
	"sync"

	"github.com/trezcool/examhall/core/catalog"
	"github.com/trezcool/examhall/core/exam"
	"github.com/trezcool/examhall/core/subscription"
	"github.com/trezcool/examhall/core/user"
)

type (
	// DB is a process-local store used by tests and the DEV environment.
	DB struct {
		user         *userTable
		catalog      *catalogTables
		subscription *paymentTable
		exam         *examTables
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	catalogTables struct {
		sync.RWMutex
		subjects  map[string]*catalog.Subject
		chapters  map[string]*catalog.Chapter
		questions map[string]*catalog.Question
		notes     map[string]*catalog.Note
		sets      map[string]*catalog.QuestionSet
		comments  map[string]*catalog.Comment
	}

	paymentTable struct {
		sync.RWMutex
		table map[string]*subscription.Payment
	}

	examTables struct {
		sync.RWMutex
		sheets  map[string]*exam.AnswerSheet
		answers map[string]*exam.Answer
		// (sheet ID, question ID) -> answer ID
		answered map[[2]string]string
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{table: make(map[string]*user.User)},
		catalog: &catalogTables{
			subjects:  make(map[string]*catalog.Subject),
			chapters:  make(map[string]*catalog.Chapter),
			questions: make(map[string]*catalog.Question),
			notes:     make(map[string]*catalog.Note),
			sets:      make(map[string]*catalog.QuestionSet),
			comments:  make(map[string]*catalog.Comment),
		},
		subscription: &paymentTable{table: make(map[string]*subscription.Payment)},
		exam: &examTables{
			sheets:   make(map[string]*exam.AnswerSheet),
			answers:  make(map[string]*exam.Answer),
			answered: make(map[[2]string]string),
		},
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
