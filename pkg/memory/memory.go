package memory

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

type Message struct {
	id string

	User string
	Role string // "user" or "assistant"
	Msg  string
}

// Memory keeps the last N exchanges globally and per user. It backs the AI
// handlers' conversation history; the zero value is not usable, call New.
type Memory struct {
	memorySz     int
	userMemorySz int

	memory      map[string][]Message
	nextUserMsg map[string]int

	lastMsgs []Message
	nextMsg  int

	lock sync.Mutex
}

func New(memorySz, userMemorySz int) *Memory {
	return &Memory{
		memorySz:     memorySz,
		userMemorySz: userMemorySz,

		memory:      make(map[string][]Message, 10),
		nextUserMsg: make(map[string]int, 10),

		lastMsgs: make([]Message, memorySz*2+1),
	}
}

func (m *Memory) initUserMem(user string) {
	if _, ok := m.memory[user]; !ok {
		m.memory[user] = make([]Message, m.userMemorySz*2+1)
		m.nextUserMsg[user] = 0

		return
	}

	if m.nextUserMsg[user] == m.userMemorySz*2 {
		copy(m.memory[user][:m.userMemorySz], m.memory[user][m.userMemorySz:m.userMemorySz*2])
		m.nextUserMsg[user] = m.userMemorySz
	}
}

func (m *Memory) Push(user, role, msg string) {
	m.lock.Lock()
	defer m.lock.Unlock()

	id := uuid.NewString()

	m.initUserMem(user)

	entry := Message{
		id:   id,
		User: user,
		Role: role,
		Msg:  msg,
	}

	m.memory[user][m.nextUserMsg[user]] = entry
	m.nextUserMsg[user]++

	if m.nextMsg == m.memorySz*2 {
		copy(m.lastMsgs[:m.memorySz], m.lastMsgs[m.memorySz:m.memorySz*2])
		m.nextMsg = m.memorySz
	}

	m.lastMsgs[m.nextMsg] = entry
	m.nextMsg++
}

func (m *Memory) GetUserMem(user string) []Message {
	m.lock.Lock()
	defer m.lock.Unlock()

	return slices.Clone(m.memory[user][max(0, m.nextUserMsg[user]-m.userMemorySz):m.nextUserMsg[user]])
}

func (m *Memory) GetMem() []Message {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.getMem()
}

func (m *Memory) getMem() []Message {
	return slices.Clone(m.lastMsgs[max(0, m.nextMsg-m.memorySz):m.nextMsg])
}

func (m *Memory) GetCombinedMem(user string) []Message {
	m.lock.Lock()
	defer m.lock.Unlock()

	res := m.getMem()

	for _, msg := range m.memory[user][max(0, m.nextUserMsg[user]-m.userMemorySz):m.nextUserMsg[user]] {
		if !slices.ContainsFunc(res, func(m Message) bool {
			return m.id == msg.id
		}) {
			res = append(res, msg)
		}
	}

	return res
}
