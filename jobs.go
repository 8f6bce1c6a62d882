package main

import (
	"bufio"
	"os"
	"os/exec"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/creack/pty"
)

// jobRequest runs an external command under a pty and streams its output
// into the log pane. Export hooks use it to hand the written CSV to a
// delivery script.
type jobRequest struct {
	title    string
	dir      string
	command  string
	args     []string
	env      []string
	onFinish func(error)
}

type jobMsg interface {
	isJob()
	jobID() int
}

type jobStartedMsg struct {
	ID    int
	Title string
}

type jobLogMsg struct {
	ID    int
	Title string
	Line  string
}

type jobFinishedMsg struct {
	ID    int
	Title string
	Err   error
}

type jobChannelClosedMsg struct {
	ID int
}

func (jobStartedMsg) isJob()         {}
func (msg jobStartedMsg) jobID() int { return msg.ID }

func (jobLogMsg) isJob()         {}
func (msg jobLogMsg) jobID() int { return msg.ID }

func (jobFinishedMsg) isJob()         {}
func (msg jobFinishedMsg) jobID() int { return msg.ID }

func (jobChannelClosedMsg) isJob()         {}
func (msg jobChannelClosedMsg) jobID() int { return msg.ID }

// jobManager runs one job at a time, in submission order.
type jobManager struct {
	nextID  int
	queue   []queuedJob
	current *queuedJob
	ch      chan jobMsg
}

type queuedJob struct {
	id  int
	req jobRequest
}

func newJobManager() *jobManager {
	return &jobManager{}
}

func (jm *jobManager) Running() bool {
	return jm.current != nil
}

func (jm *jobManager) Pending() int {
	return len(jm.queue)
}

func (jm *jobManager) Enqueue(req jobRequest) (int, tea.Cmd) {
	jm.nextID++
	jm.queue = append(jm.queue, queuedJob{id: jm.nextID, req: req})
	return jm.nextID, jm.nextCmd()
}

// Handle advances the queue. Every message except the final close re-arms
// the listener on the running job's channel.
func (jm *jobManager) Handle(msg jobMsg) tea.Cmd {
	switch msg := msg.(type) {
	case jobFinishedMsg:
		if jm.current != nil && jm.current.id == msg.ID && jm.current.req.onFinish != nil {
			jm.current.req.onFinish(msg.Err)
		}
		return jm.listen()
	case jobChannelClosedMsg:
		jm.current = nil
		jm.ch = nil
		return jm.nextCmd()
	default:
		return jm.listen()
	}
}

func (jm *jobManager) listen() tea.Cmd {
	if jm.ch == nil || jm.current == nil {
		return nil
	}
	return waitForJobMsg(jm.current.id, jm.ch)
}

func (jm *jobManager) nextCmd() tea.Cmd {
	if jm.current != nil || len(jm.queue) == 0 {
		return nil
	}
	job := jm.queue[0]
	jm.queue = jm.queue[1:]
	jm.current = &job

	jm.ch = make(chan jobMsg)
	go runJob(job.id, job.req, jm.ch)
	return waitForJobMsg(job.id, jm.ch)
}

func runJob(id int, req jobRequest, ch chan<- jobMsg) {
	defer close(ch)

	ch <- jobStartedMsg{ID: id, Title: req.title}

	cmd := exec.Command(req.command, req.args...)
	if req.dir != "" {
		cmd.Dir = req.dir
	}
	if len(req.env) > 0 {
		env := append([]string{}, os.Environ()...)
		env = append(env, req.env...)
		cmd.Env = env
	}

	ptmx, err := pty.Start(cmd)
	if err != nil {
		ch <- jobLogMsg{ID: id, Title: req.title, Line: err.Error()}
		ch <- jobFinishedMsg{ID: id, Title: req.title, Err: err}
		return
	}
	defer ptmx.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(ptmx)
		for scanner.Scan() {
			ch <- jobLogMsg{ID: id, Title: req.title, Line: scanner.Text()}
		}
	}()

	wg.Wait()
	err = cmd.Wait()
	ch <- jobFinishedMsg{ID: id, Title: req.title, Err: err}
}

func waitForJobMsg(id int, ch <-chan jobMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return jobChannelClosedMsg{ID: id}
		}
		return msg
	}
}
