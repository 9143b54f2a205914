package authtest

import "sync"

// Notice is one recorded notification.
type Notice struct {
	Kind    string // "success" or "error"
	Title   string
	Message string
}

// Recorder captures notifications and navigation requests. It satisfies the
// auth package's Notifier and Navigator ports.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
	routes  []string
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Success(title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Kind: "success", Title: title, Message: message})
}

func (r *Recorder) Error(title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Kind: "error", Title: title, Message: message})
}

func (r *Recorder) NavigateTo(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, path)
}

// Notices returns everything notified so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Routes returns every navigation request so far.
func (r *Recorder) Routes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.routes...)
}

// LastRoute returns the most recent navigation request, or "".
func (r *Recorder) LastRoute() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.routes) == 0 {
		return ""
	}
	return r.routes[len(r.routes)-1]
}

// Reset drops everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = nil
	r.routes = nil
}
