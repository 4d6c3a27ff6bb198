package test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/RaiseHigh-Tech/topgrade-api/core/program"
	"github.com/RaiseHigh-Tech/topgrade-api/core/progress"
)

type progressTest struct {
	*TestEnv
}

func TestProgress(t *testing.T) {
	env, err := NewTestEnv(t, "progress_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	gt := &progressTest{env}
	pt := &programTest{env}
	rt := &cartTest{env}
	ot := &orderTest{env}

	prg := pt.createProgramOK(t)
	syl := pt.createSyllabusOK(t, prg.ID)
	t1 := pt.createTopicOK(t, syl.ID, 100, false)
	t2 := pt.createTopicOK(t, syl.ID, 200, false)

	// Reporting on a topic of a program the student did not buy must fail.
	gt.updateProgressStatus(t, t1.ID, 50, http.StatusForbidden)

	rt.createItemOK(t, prg.ID)
	ot.Paypal.expectedCart = []program.Program{prg}
	ot.testPaypal(t)

	// Halfway through the first topic: in progress, rollup untouched.
	up := gt.updateProgressOK(t, t1.ID, 50)
	if up.Topic.Status != progress.InProgress {
		t.Fatalf("expected status %q, got %q", progress.InProgress, up.Topic.Status)
	}
	if up.Topic.Percentage != 50 {
		t.Fatalf("expected topic at 50%%, got %.1f", up.Topic.Percentage)
	}
	if up.Course.CompletedTopics != 0 || up.Course.TotalTopics != 2 {
		t.Fatalf("unexpected rollup: %+v", up.Course)
	}

	// A lower report cannot rewind the watch time.
	up = gt.updateProgressOK(t, t1.ID, 30)
	if up.Topic.WatchSeconds != 50 {
		t.Fatalf("watch time rewound to %d", up.Topic.WatchSeconds)
	}

	// Crossing 90% completes the topic and bumps the rollup.
	up = gt.updateProgressOK(t, t1.ID, 95)
	if up.Topic.Status != progress.Completed {
		t.Fatalf("expected status %q, got %q", progress.Completed, up.Topic.Status)
	}
	if up.Topic.CompletedAt == nil {
		t.Fatal("completed topic misses its completion time")
	}
	if up.Course.CompletedTopics != 1 || up.Course.Percentage != 50 {
		t.Fatalf("unexpected rollup: %+v", up.Course)
	}
	if up.Course.Completed {
		t.Fatal("course completed with half the topics remaining")
	}

	// Overshooting the duration is capped and completes the course.
	up = gt.updateProgressOK(t, t2.ID, 500)
	if up.Topic.WatchSeconds != 200 {
		t.Fatalf("watch time not capped at the duration: %d", up.Topic.WatchSeconds)
	}
	if !up.Course.Completed || up.Course.Percentage != 100 {
		t.Fatalf("unexpected rollup: %+v", up.Course)
	}
	if up.Course.CompletedAt == nil {
		t.Fatal("completed course misses its completion time")
	}

	gt.listProgressOK(t, prg.ID, 2)
	gt.learningsOK(t)
	gt.continueWatchingOK(t, prg.ID)
}

type updatedProgress struct {
	Topic  progress.TopicProgress  `json:"topicProgress"`
	Course progress.CourseProgress `json:"courseProgress"`
}

func (gt *progressTest) updateProgressOK(t *testing.T, topicID string, watchSeconds int) updatedProgress {
	t.Helper()

	if err := Login(gt.Server, gt.UserEmail, gt.UserPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(gt.Server)

	body, err := json.Marshal(progress.ProgressUp{WatchSeconds: watchSeconds})
	if err != nil {
		t.Fatal(err)
	}

	r, err := http.NewRequest(http.MethodPut, gt.URL+"/topics/"+topicID+"/progress", bytes.NewBuffer(body))
	if err != nil {
		t.Fatal(err)
	}

	w, err := gt.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't update progress: status code %s", w.Status)
	}

	var up updatedProgress
	if err := json.NewDecoder(w.Body).Decode(&up); err != nil {
		t.Fatalf("cannot unmarshal progress: %v", err)
	}

	return up
}

func (gt *progressTest) updateProgressStatus(t *testing.T, topicID string, watchSeconds int, want int) {
	t.Helper()

	if err := Login(gt.Server, gt.UserEmail, gt.UserPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(gt.Server)

	body, err := json.Marshal(progress.ProgressUp{WatchSeconds: watchSeconds})
	if err != nil {
		t.Fatal(err)
	}

	r, err := http.NewRequest(http.MethodPut, gt.URL+"/topics/"+topicID+"/progress", bytes.NewBuffer(body))
	if err != nil {
		t.Fatal(err)
	}

	w, err := gt.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != want {
		t.Fatalf("expected status code %d, got %s", want, w.Status)
	}
}

func (gt *progressTest) listProgressOK(t *testing.T, programID string, wantRows int) {
	if err := Login(gt.Server, gt.UserEmail, gt.UserPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(gt.Server)

	w, err := gt.Client().Get(gt.URL + "/programs/" + programID + "/progress")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't list program progress: status code %s", w.Status)
	}

	var tps []progress.TopicProgress
	if err := json.NewDecoder(w.Body).Decode(&tps); err != nil {
		t.Fatalf("cannot unmarshal progress rows: %v", err)
	}

	if len(tps) != wantRows {
		t.Fatalf("expected %d progress rows, got %d", wantRows, len(tps))
	}
}

func (gt *progressTest) learningsOK(t *testing.T) {
	if err := Login(gt.Server, gt.UserEmail, gt.UserPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(gt.Server)

	w, err := gt.Client().Get(gt.URL + "/learnings")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't fetch learnings: status code %s", w.Status)
	}

	var res struct {
		Statistics struct {
			TotalCourses     int     `json:"totalCourses"`
			CompletedCourses int     `json:"completedCourses"`
			CompletionRate   float64 `json:"completionRate"`
		} `json:"statistics"`
		Learnings []json.RawMessage `json:"learnings"`
	}
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("cannot unmarshal learnings: %v", err)
	}

	if res.Statistics.TotalCourses != 1 || res.Statistics.CompletedCourses != 1 {
		t.Fatalf("unexpected statistics: %+v", res.Statistics)
	}
	if res.Statistics.CompletionRate != 100 {
		t.Fatalf("expected 100%% completion rate, got %.1f", res.Statistics.CompletionRate)
	}
	if len(res.Learnings) != 1 {
		t.Fatalf("expected 1 learning, got %d", len(res.Learnings))
	}
}

// continueWatchingOK checks that the landing page lists the program the
// logged-in student has been watching.
func (gt *progressTest) continueWatchingOK(t *testing.T, programID string) {
	if err := Login(gt.Server, gt.UserEmail, gt.UserPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(gt.Server)

	w, err := gt.Client().Get(gt.URL + "/programs/landing")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't fetch landing: status code %s", w.Status)
	}

	var landing struct {
		ContinueWatching []struct {
			ID string `json:"id"`
		} `json:"continueWatching"`
	}
	if err := json.NewDecoder(w.Body).Decode(&landing); err != nil {
		t.Fatalf("cannot unmarshal landing: %v", err)
	}

	for _, wtc := range landing.ContinueWatching {
		if wtc.ID == programID {
			return
		}
	}
	t.Fatalf("program[%s] missing from continue watching", programID)
}
