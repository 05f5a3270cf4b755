// Command consistency_audit sweeps a running records API and verifies that
// every enrollment edge is recorded on both sides: each course id held by a
// student must appear on that course's roster, and each student id on a
// roster must appear on that student. It exits non-zero when a dangling or
// one-sided reference is found, which makes it usable as a post-deploy check.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type student struct {
	ID                string   `json:"id"`
	StudentID         string   `json:"student_id"`
	EnrolledCourseIDs []string `json:"enrolled_course_ids"`
}

type course struct {
	ID                 string   `json:"id"`
	Code               string   `json:"code"`
	MaxCapacity        int      `json:"max_capacity"`
	EnrolledStudentIDs []string `json:"enrolled_student_ids"`
}

type envelope struct {
	Data       json.RawMessage `json:"data"`
	Pagination *struct {
		Page       int `json:"page"`
		PageSize   int `json:"page_size"`
		TotalCount int `json:"total_count"`
	} `json:"pagination"`
}

type finding struct {
	Kind    string
	Subject string
	Detail  string
}

func main() {
	var (
		base    string
		prefix  string
		timeout time.Duration
	)
	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&prefix, "prefix", "/api/v1", "API route prefix")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}
	root := strings.TrimRight(base, "/") + prefix

	var students []student
	if err := fetchAll(client, root+"/students", &students); err != nil {
		log.Fatalf("failed to fetch students: %v", err)
	}
	var courses []course
	if err := fetchAll(client, root+"/courses", &courses); err != nil {
		log.Fatalf("failed to fetch courses: %v", err)
	}

	findings := audit(students, courses)
	for _, f := range findings {
		fmt.Printf("%-18s %-40s %s\n", f.Kind, f.Subject, f.Detail)
	}
	fmt.Printf("students: %d, courses: %d, findings: %d\n", len(students), len(courses), len(findings))
	if len(findings) > 0 {
		os.Exit(1)
	}
}

func audit(students []student, courses []course) []finding {
	studentByID := make(map[string]student, len(students))
	for _, s := range students {
		studentByID[s.ID] = s
	}
	courseByID := make(map[string]course, len(courses))
	for _, c := range courses {
		courseByID[c.ID] = c
	}

	var findings []finding
	for _, s := range students {
		seen := make(map[string]bool)
		for _, courseID := range s.EnrolledCourseIDs {
			if seen[courseID] {
				findings = append(findings, finding{"DUPLICATE_EDGE", "student " + s.ID, "course " + courseID + " listed twice"})
				continue
			}
			seen[courseID] = true
			c, ok := courseByID[courseID]
			if !ok {
				findings = append(findings, finding{"DANGLING_REF", "student " + s.ID, "references missing course " + courseID})
				continue
			}
			if !contains(c.EnrolledStudentIDs, s.ID) {
				findings = append(findings, finding{"ONE_SIDED_EDGE", "student " + s.ID, "course " + courseID + " does not list the student"})
			}
		}
	}
	for _, c := range courses {
		seen := make(map[string]bool)
		for _, studentID := range c.EnrolledStudentIDs {
			if seen[studentID] {
				findings = append(findings, finding{"DUPLICATE_EDGE", "course " + c.ID, "student " + studentID + " listed twice"})
				continue
			}
			seen[studentID] = true
			s, ok := studentByID[studentID]
			if !ok {
				findings = append(findings, finding{"DANGLING_REF", "course " + c.ID, "references missing student " + studentID})
				continue
			}
			if !contains(s.EnrolledCourseIDs, c.ID) {
				findings = append(findings, finding{"ONE_SIDED_EDGE", "course " + c.ID, "student " + studentID + " does not list the course"})
			}
		}
		if len(c.EnrolledStudentIDs) > c.MaxCapacity {
			findings = append(findings, finding{"OVER_CAPACITY", "course " + c.ID,
				fmt.Sprintf("%d enrolled, capacity %d", len(c.EnrolledStudentIDs), c.MaxCapacity)})
		}
	}
	return findings
}

// fetchAll walks the paginated listing until the reported total is consumed.
func fetchAll(client *http.Client, url string, out interface{}) error {
	const pageSize = 100
	var raw []json.RawMessage
	for page := 1; ; page++ {
		env, err := fetchPage(client, fmt.Sprintf("%s?page=%d&limit=%d", url, page, pageSize))
		if err != nil {
			return err
		}
		var items []json.RawMessage
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return fmt.Errorf("decode page %d: %w", page, err)
		}
		raw = append(raw, items...)
		if env.Pagination == nil || len(raw) >= env.Pagination.TotalCount || len(items) == 0 {
			break
		}
	}
	joined, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(joined, out)
}

func fetchPage(client *http.Client, url string) (*envelope, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", url, err)
	}
	return &env, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
