package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"testing"

	"github.com/RaiseHigh-Tech/topgrade-api/core/program"
)

type programTest struct {
	*TestEnv
}

func TestProgram(t *testing.T) {
	env, err := NewTestEnv(t, "program_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	pt := &programTest{env}

	prg := pt.createProgramOK(t)
	syl := pt.createSyllabusOK(t, prg.ID)
	top := pt.createTopicOK(t, syl.ID, 100, false)
	intro := pt.createTopicOK(t, syl.ID, 60, true)

	pt.listProgramsOK(t, prg.ID)
	pt.searchProgramsOK(t, prg.Title, prg.ID)
	pt.showGatesVideosOK(t, prg.ID, top.ID, intro.ID)
	pt.landingOK(t)

	pt.updateSyllabusOK(t, syl.ID)

	rt := &cartTest{env}
	ot := &orderTest{env}
	rt.createItemOK(t, prg.ID)
	ot.Paypal.expectedCart = []program.Program{prg}
	ot.testPaypal(t)

	pt.showOwnedVideosOK(t, prg.ID, top.ID)
}

func (pt *programTest) createProgramOK(t *testing.T) program.Program {
	if err := Login(pt.Server, pt.AdminEmail, pt.AdminPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(pt.Server)

	pn := program.ProgramNew{
		Title:              fmt.Sprintf("Program %d", rand.Intn(10000)),
		Description:        "A test program",
		Price:              100,
		DiscountPercentage: 10,
		Rating:             4.5,
		BestSeller:         true,
	}

	body, err := json.Marshal(pn)
	if err != nil {
		t.Fatal(err)
	}

	w, err := pt.Client().Post(pt.URL+"/programs", "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusCreated {
		t.Fatalf("can't create program: status code %s", w.Status)
	}

	var prg program.Program
	if err := json.NewDecoder(w.Body).Decode(&prg); err != nil {
		t.Fatalf("cannot unmarshal created program: %v", err)
	}

	return prg
}

func (pt *programTest) createSyllabusOK(t *testing.T, programID string) program.Syllabus {
	if err := Login(pt.Server, pt.AdminEmail, pt.AdminPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(pt.Server)

	sn := program.SyllabusNew{
		ProgramID: programID,
		Title:     "Module 1",
		Position:  1,
	}

	body, err := json.Marshal(sn)
	if err != nil {
		t.Fatal(err)
	}

	w, err := pt.Client().Post(pt.URL+"/syllabuses", "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusCreated {
		t.Fatalf("can't create syllabus: status code %s", w.Status)
	}

	var syl program.Syllabus
	if err := json.NewDecoder(w.Body).Decode(&syl); err != nil {
		t.Fatalf("cannot unmarshal created syllabus: %v", err)
	}

	return syl
}

func (pt *programTest) createTopicOK(t *testing.T, syllabusID string, duration int, intro bool) program.Topic {
	if err := Login(pt.Server, pt.AdminEmail, pt.AdminPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(pt.Server)

	tn := program.TopicNew{
		SyllabusID:      syllabusID,
		Title:           fmt.Sprintf("Topic %d", rand.Intn(10000)),
		VideoURL:        "https://videos.test/sample.mp4",
		DurationSeconds: duration,
		Intro:           intro,
		Position:        1,
	}

	body, err := json.Marshal(tn)
	if err != nil {
		t.Fatal(err)
	}

	w, err := pt.Client().Post(pt.URL+"/topics", "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusCreated {
		t.Fatalf("can't create topic: status code %s", w.Status)
	}

	var top program.Topic
	if err := json.NewDecoder(w.Body).Decode(&top); err != nil {
		t.Fatalf("cannot unmarshal created topic: %v", err)
	}

	return top
}

func (pt *programTest) listProgramsOK(t *testing.T, wantID string) {
	w, err := pt.Client().Get(pt.URL + "/programs")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't list programs: status code %s", w.Status)
	}

	var cards []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(w.Body).Decode(&cards); err != nil {
		t.Fatalf("cannot unmarshal program list: %v", err)
	}

	for _, c := range cards {
		if c.ID == wantID {
			return
		}
	}
	t.Fatalf("program[%s] missing from the catalog", wantID)
}

func (pt *programTest) searchProgramsOK(t *testing.T, search string, wantID string) {
	w, err := pt.Client().Get(pt.URL + "/programs?search=" + search[:7])
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't search programs: status code %s", w.Status)
	}

	var cards []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(w.Body).Decode(&cards); err != nil {
		t.Fatalf("cannot unmarshal search results: %v", err)
	}

	for _, c := range cards {
		if c.ID == wantID {
			return
		}
	}
	t.Fatalf("program[%s] missing from search results", wantID)
}

// showGatesVideosOK checks that a guest sees the intro video URL but not
// the paid one.
func (pt *programTest) showGatesVideosOK(t *testing.T, programID string, paidID string, introID string) {
	w, err := pt.Client().Get(pt.URL + "/programs/" + programID)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't show program: status code %s", w.Status)
	}

	var detail struct {
		Syllabus []struct {
			Topics []struct {
				ID         string `json:"id"`
				VideoURL   string `json:"videoUrl"`
				Accessible bool   `json:"isAccessible"`
			} `json:"topics"`
		} `json:"syllabus"`
	}
	if err := json.NewDecoder(w.Body).Decode(&detail); err != nil {
		t.Fatalf("cannot unmarshal program detail: %v", err)
	}

	found := 0
	for _, syl := range detail.Syllabus {
		for _, top := range syl.Topics {
			switch top.ID {
			case paidID:
				found++
				if top.Accessible || top.VideoURL != "" {
					t.Fatal("paid topic leaked its video to a guest")
				}
			case introID:
				found++
				if !top.Accessible || top.VideoURL == "" {
					t.Fatal("intro topic should be watchable by a guest")
				}
			}
		}
	}

	if found != 2 {
		t.Fatalf("expected 2 known topics on the detail, found %d", found)
	}
}

func (pt *programTest) landingOK(t *testing.T) {
	w, err := pt.Client().Get(pt.URL + "/programs/landing")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't fetch landing: status code %s", w.Status)
	}

	var landing struct {
		TopRated []struct {
			Rating float64 `json:"rating"`
		} `json:"topRated"`
		Recent   []json.RawMessage `json:"recentlyAdded"`
		Featured []json.RawMessage `json:"featured"`
	}
	if err := json.NewDecoder(w.Body).Decode(&landing); err != nil {
		t.Fatalf("cannot unmarshal landing: %v", err)
	}

	if len(landing.Recent) == 0 {
		t.Fatal("landing misses the recently added group")
	}
	if len(landing.Featured) == 0 {
		t.Fatal("landing misses the featured group")
	}
	for _, p := range landing.TopRated {
		if p.Rating < 4.0 {
			t.Fatalf("top rated program with rating %.1f below threshold", p.Rating)
		}
	}
}

func (pt *programTest) listProgramsOwnedOK(t *testing.T, wantIDs []string) {
	if err := Login(pt.Server, pt.UserEmail, pt.UserPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(pt.Server)

	w, err := pt.Client().Get(pt.URL + "/programs/owned")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't list owned programs: status code %s", w.Status)
	}

	var prgs []program.Program
	if err := json.NewDecoder(w.Body).Decode(&prgs); err != nil {
		t.Fatalf("cannot unmarshal owned programs: %v", err)
	}

	if len(prgs) != len(wantIDs) {
		t.Fatalf("expected %d owned programs, got %d", len(wantIDs), len(prgs))
	}

	owned := make(map[string]bool, len(prgs))
	for _, p := range prgs {
		owned[p.ID] = true
	}
	for _, id := range wantIDs {
		if !owned[id] {
			t.Fatalf("program[%s] missing from owned list", id)
		}
	}
}

func (pt *programTest) updateSyllabusOK(t *testing.T, syllabusID string) {
	if err := Login(pt.Server, pt.AdminEmail, pt.AdminPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(pt.Server)

	title := "Module One"
	position := 2
	body, err := json.Marshal(program.SyllabusUp{Title: &title, Position: &position})
	if err != nil {
		t.Fatal(err)
	}

	r, err := http.NewRequest(http.MethodPut, pt.URL+"/syllabuses/"+syllabusID, bytes.NewBuffer(body))
	if err != nil {
		t.Fatal(err)
	}

	w, err := pt.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't update syllabus: status code %s", w.Status)
	}

	var syl program.Syllabus
	if err := json.NewDecoder(w.Body).Decode(&syl); err != nil {
		t.Fatalf("cannot unmarshal updated syllabus: %v", err)
	}

	if syl.Title != title || syl.Position != position {
		t.Fatalf("syllabus update not applied: %+v", syl)
	}
}

// showOwnedVideosOK checks that a logged-in purchaser gets the paid video
// URLs on the public detail route.
func (pt *programTest) showOwnedVideosOK(t *testing.T, programID string, paidID string) {
	if err := Login(pt.Server, pt.UserEmail, pt.UserPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(pt.Server)

	w, err := pt.Client().Get(pt.URL + "/programs/" + programID)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't show program: status code %s", w.Status)
	}

	var detail struct {
		Purchased bool `json:"hasPurchased"`
		Syllabus  []struct {
			Topics []struct {
				ID         string `json:"id"`
				VideoURL   string `json:"videoUrl"`
				Accessible bool   `json:"isAccessible"`
			} `json:"topics"`
		} `json:"syllabus"`
	}
	if err := json.NewDecoder(w.Body).Decode(&detail); err != nil {
		t.Fatalf("cannot unmarshal program detail: %v", err)
	}

	if !detail.Purchased {
		t.Fatal("purchaser not recognized on the program detail")
	}

	found := false
	for _, syl := range detail.Syllabus {
		for _, top := range syl.Topics {
			if top.ID != paidID {
				continue
			}
			found = true
			if !top.Accessible || top.VideoURL == "" {
				t.Fatal("paid topic should be watchable by its purchaser")
			}
		}
	}

	if !found {
		t.Fatalf("topic[%s] missing from the detail", paidID)
	}
}
