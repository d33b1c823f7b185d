package redeems_test

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/kittynXR/mewbot/internal/app/redeems"
)

type verdict struct {
	RewardID     string
	RedemptionID string
	Status       redeems.Status
}

// fakeRewards is an in-memory reward service. Status errors are consumed
// from a queue so tests can script transient failures.
type fakeRewards struct {
	lock sync.Mutex

	rewards map[string]redeems.UpstreamReward
	nextID  int

	verdicts   []verdict
	statusErrs []error

	listErr   error
	createErr error
	updateErr error

	creates int
	updates int
}

func newFakeRewards(seed ...redeems.UpstreamReward) *fakeRewards {
	f := &fakeRewards{rewards: map[string]redeems.UpstreamReward{}}
	for _, r := range seed {
		f.rewards[r.ID] = r
	}

	return f
}

func (f *fakeRewards) ListRewards(context.Context) ([]redeems.UpstreamReward, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}

	out := make([]redeems.UpstreamReward, 0, len(f.rewards))
	for _, r := range f.rewards {
		out = append(out, r)
	}

	return out, nil
}

func (f *fakeRewards) CreateReward(_ context.Context, fields redeems.RewardFields) (*redeems.UpstreamReward, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.createErr != nil {
		return nil, f.createErr
	}

	f.nextID++
	f.creates++

	r := redeems.UpstreamReward{
		ID:                  "up-" + strconv.Itoa(f.nextID),
		Title:               fields.Title,
		Cost:                fields.Cost,
		Prompt:              fields.Prompt,
		CooldownSeconds:     fields.CooldownSeconds,
		IsUserInputRequired: fields.IsUserInputRequired,
		IsEnabled:           fields.IsEnabled,
	}
	f.rewards[r.ID] = r

	return &r, nil
}

func (f *fakeRewards) UpdateReward(_ context.Context, id string, fields redeems.RewardFields) (*redeems.UpstreamReward, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.updateErr != nil {
		return nil, f.updateErr
	}

	r, ok := f.rewards[id]
	if !ok {
		return nil, redeems.NotFoundf("no reward %s", id)
	}

	f.updates++

	r.Title = fields.Title
	r.Cost = fields.Cost
	r.Prompt = fields.Prompt
	r.CooldownSeconds = fields.CooldownSeconds
	r.IsUserInputRequired = fields.IsUserInputRequired
	r.IsEnabled = fields.IsEnabled
	f.rewards[id] = r

	return &r, nil
}

func (f *fakeRewards) SetRedemptionStatus(_ context.Context, rewardID, redemptionID string, status redeems.Status) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if len(f.statusErrs) > 0 {
		err := f.statusErrs[0]
		f.statusErrs = f.statusErrs[1:]
		if err != nil {
			return err
		}
	}

	f.verdicts = append(f.verdicts, verdict{RewardID: rewardID, RedemptionID: redemptionID, Status: status})

	return nil
}

func (f *fakeRewards) verdictsFor(redemptionID string) []verdict {
	f.lock.Lock()
	defer f.lock.Unlock()

	var out []verdict
	for _, v := range f.verdicts {
		if v.RedemptionID == redemptionID {
			out = append(out, v)
		}
	}

	return out
}

func (f *fakeRewards) allVerdicts() []verdict {
	f.lock.Lock()
	defer f.lock.Unlock()

	out := make([]verdict, len(f.verdicts))
	copy(out, f.verdicts)

	return out
}

func (f *fakeRewards) byTitle(title string) (redeems.UpstreamReward, bool) {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, r := range f.rewards {
		if r.Title == title {
			return r, true
		}
	}

	return redeems.UpstreamReward{}, false
}

type fakeChat struct {
	lock  sync.Mutex
	lines []string
}

func (f *fakeChat) Say(_, text string) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.lines = append(f.lines, text)
}

func (f *fakeChat) all() []string {
	f.lock.Lock()
	defer f.lock.Unlock()

	out := make([]string, len(f.lines))
	copy(out, f.lines)

	return out
}

type fakeAI struct {
	lock sync.Mutex

	response string
	err      error

	prompts    []string
	remainders map[string]string
}

func (f *fakeAI) Generate(_ context.Context, _, prompt string, _ bool) (string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.prompts = append(f.prompts, prompt)

	return f.response, f.err
}

func (f *fakeAI) StoreRemainder(userID, text string) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.remainders == nil {
		f.remainders = map[string]string{}
	}
	f.remainders[userID] = text
}

func (f *fakeAI) TakeRemainder(userID string) (string, bool) {
	f.lock.Lock()
	defer f.lock.Unlock()

	text, ok := f.remainders[userID]
	delete(f.remainders, userID)

	return text, ok
}

type fakeOSC struct {
	lock sync.Mutex

	connected bool
	sendErr   error

	sends []string
}

func (f *fakeOSC) Send(endpoint string, value any) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.sendErr != nil {
		return f.sendErr
	}

	f.sends = append(f.sends, fmt.Sprintf("%s=%v", endpoint, value))

	return nil
}

func (f *fakeOSC) Reconnect() error {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.connected = true

	return nil
}

func (f *fakeOSC) allSends() []string {
	f.lock.Lock()
	defer f.lock.Unlock()

	out := make([]string, len(f.sends))
	copy(out, f.sends)

	return out
}

func (f *fakeOSC) IsConnected() bool {
	f.lock.Lock()
	defer f.lock.Unlock()

	return f.connected
}
