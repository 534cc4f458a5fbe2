package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wesm/redmine-tracker/internal/models"
)

// ProjectIssues is the result of loading the issues of one project
type ProjectIssues struct {
	Project models.Project
	Issues  []models.Issue
}

// IssuesByProject loads the issues of every project using a pool of workers.
// Projects that fail are logged and left out; the error summarizes them.
func (s *Session) IssuesByProject(ctx context.Context, projects []models.Project) ([]ProjectIssues, error) {
	total := len(projects)
	if total == 0 {
		return nil, nil
	}

	s.logger.Info("loading issues", "projects", total, "workers", s.workers)

	projectsChan := make(chan int, total)
	results := make([]*ProjectIssues, total)
	errorsChan := make(chan error, total)

	var wg sync.WaitGroup

	var progressMutex sync.Mutex
	processed := 0
	lastProgressUpdate := time.Now()
	progressInterval := 5 * time.Second

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for idx := range projectsChan {
				if workerCtx.Err() != nil {
					return
				}

				project := projects[idx]
				issues, err := s.Issues(workerCtx, project.ID)
				if err != nil {
					errorsChan <- fmt.Errorf("project %s: %w", project.Name, err)
				} else {
					results[idx] = &ProjectIssues{Project: project, Issues: issues}
				}

				progressMutex.Lock()
				processed++
				current := processed
				shouldLog := current == 1 || current == total ||
					time.Since(lastProgressUpdate) >= progressInterval
				if shouldLog {
					s.logger.Info("progress", "done", current, "total", total)
					lastProgressUpdate = time.Now()
				}
				progressMutex.Unlock()
			}
		}()
	}

	for idx := range projects {
		select {
		case <-ctx.Done():
			close(projectsChan)
			wg.Wait()
			return nil, ctx.Err()
		case projectsChan <- idx:
		}
	}
	close(projectsChan)

	wg.Wait()
	close(errorsChan)

	out := make([]ProjectIssues, 0, total)
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}

	errorCount := len(errorsChan)
	if errorCount == 0 {
		return out, nil
	}

	sampleSize := 5
	if errorCount < sampleSize {
		sampleSize = errorCount
	}
	s.logger.Warn("completed with errors", "errors", errorCount)
	for i := 0; i < sampleSize; i++ {
		if err, ok := <-errorsChan; ok {
			s.logger.Warn("project failed", "error", err)
		}
	}
	return out, fmt.Errorf("failed to load issues of %d of %d projects", errorCount, total)
}
