package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"insurance-etl/internal/cleaning"
	"insurance-etl/internal/config"
	"insurance-etl/internal/database/minio"
	"insurance-etl/internal/event"
	"insurance-etl/internal/ingest"
	"insurance-etl/internal/latefee"
	"insurance-etl/internal/models"
	"insurance-etl/internal/repository"
	"insurance-etl/internal/rules"

	"github.com/google/uuid"
)

// PipelineService orchestrates one full run: ingest raw extracts, clean and
// stage the canonical dataset, rebuild the warehouse, import late-fee rules
// and price every premium payment.
type PipelineService struct {
	cfg       config.PipelineConfig
	cleaner   *cleaning.Cleaner
	loader    *WarehouseLoader
	ruleRepo  *repository.RuleRepository
	factRepo  *repository.FactRepository
	store     *RunStore
	storage   *minio.MinioClient
	publisher *event.RunPublisher
}

func NewPipelineService(
	cfg config.PipelineConfig,
	loader *WarehouseLoader,
	ruleRepo *repository.RuleRepository,
	factRepo *repository.FactRepository,
	store *RunStore,
	storage *minio.MinioClient,
	publisher *event.RunPublisher,
) *PipelineService {
	return &PipelineService{
		cfg:       cfg,
		cleaner:   cleaning.NewCleaner(cfg.CleanWorkers),
		loader:    loader,
		ruleRepo:  ruleRepo,
		factRepo:  factRepo,
		store:     store,
		storage:   storage,
		publisher: publisher,
	}
}

// StartRun registers a new pending run and returns its summary. The actual
// work happens later on the worker pool.
func (s *PipelineService) StartRun(ctx context.Context) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		RunID:     uuid.New(),
		Status:    models.RunPending,
		StartedAt: time.Now().UTC(),
	}
	if err := s.store.Save(ctx, summary); err != nil {
		return nil, fmt.Errorf("failed to register run: %w", err)
	}
	return summary, nil
}

// GetRun loads the current state of a run.
func (s *PipelineService) GetRun(ctx context.Context, runID uuid.UUID) (*models.RunSummary, bool, error) {
	return s.store.Get(ctx, runID)
}

// Run executes the pipeline for a previously registered run. Failures mark
// the run failed and are still announced downstream.
func (s *PipelineService) Run(ctx context.Context, runID uuid.UUID) error {
	summary, ok, err := s.store.Get(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	if !ok {
		summary = &models.RunSummary{RunID: runID, StartedAt: time.Now().UTC()}
	}
	summary.Status = models.RunRunning
	summary.FailureMessage = nil
	if err := s.store.Save(ctx, summary); err != nil {
		return fmt.Errorf("failed to mark run %s running: %w", runID, err)
	}

	if err := s.execute(ctx, summary); err != nil {
		msg := err.Error()
		now := time.Now().UTC()
		summary.Status = models.RunFailed
		summary.FailureMessage = &msg
		summary.CompletedAt = &now
		if saveErr := s.store.Save(ctx, summary); saveErr != nil {
			log.Printf("[Pipeline] failed to persist failure state for run %s: %v", runID, saveErr)
		}
		s.publish(ctx, summary)
		return err
	}

	now := time.Now().UTC()
	summary.Status = models.RunCompleted
	summary.CompletedAt = &now
	if err := s.store.Save(ctx, summary); err != nil {
		return fmt.Errorf("failed to persist completed run %s: %w", runID, err)
	}
	s.publish(ctx, summary)

	log.Printf("[Pipeline] run %s completed: facts=%d fees=%d unmatched=%d",
		runID, summary.FactsLoaded, summary.FeesComputed, summary.UnmatchedFees)
	return nil
}

func (s *PipelineService) execute(ctx context.Context, summary *models.RunSummary) error {
	cleaned, err := s.cleanedDataset(ctx, summary)
	if err != nil {
		return err
	}

	factsLoaded, err := s.loader.Load(ctx, cleaned)
	if err != nil {
		return fmt.Errorf("failed to load warehouse: %w", err)
	}
	summary.FactsLoaded = factsLoaded
	if err := s.store.Save(ctx, summary); err != nil {
		log.Printf("[Pipeline] failed to checkpoint run %s after warehouse load: %v", summary.RunID, err)
	}

	ruleSet, err := s.loadRules(ctx)
	if err != nil {
		return err
	}

	payments, err := s.factRepo.ListPayments(ctx)
	if err != nil {
		return err
	}
	engine := latefee.NewEngine(latefee.NewRepository(ruleSet))
	unmatched := engine.ComputeAll(ctx, payments, s.cfg.FeeWorkers)
	if err := s.factRepo.UpdateFees(ctx, payments); err != nil {
		return err
	}
	summary.FeesComputed = len(payments)
	summary.UnmatchedFees = unmatched

	if unmatched > 0 {
		var factIDs []int64
		for i := range payments {
			if payments[i].NoRuleMatched {
				factIDs = append(factIDs, payments[i].FactID)
			}
		}
		if err := s.publisher.PublishUnmatchedFees(ctx, event.UnmatchedFeesEvent{
			RunID:   summary.RunID,
			Count:   unmatched,
			FactIDs: factIDs,
		}); err != nil {
			log.Printf("[Pipeline] failed to publish unmatched fees for run %s: %v", summary.RunID, err)
		}
	}
	return nil
}

// cleanedDataset returns the canonical cleaned records for this run. When a
// previous attempt already staged its checkpoint, the dataset is reloaded
// from storage instead of reprocessing raw files.
func (s *PipelineService) cleanedDataset(ctx context.Context, summary *models.RunSummary) ([]models.CleanRecord, error) {
	object := stagedObject(summary.RunID)

	if summary.Cleaning != nil {
		if records, ok := s.loadCheckpoint(ctx, object); ok {
			log.Printf("[Pipeline] run %s resuming from staged checkpoint (%d rows)", summary.RunID, len(records))
			return records, nil
		}
	}

	s.syncRawExtracts(ctx)

	res, err := ingest.ScanDir(s.cfg.RawDataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to ingest raw extracts: %w", err)
	}
	summary.SkippedFiles = res.SkippedFiles

	cleaned, report, err := s.cleaner.Clean(ctx, res.Records)
	if err != nil {
		return nil, err
	}
	summary.Cleaning = report

	var buf bytes.Buffer
	if err := cleaning.WriteCSV(&buf, cleaned); err != nil {
		return nil, fmt.Errorf("failed to render cleaned dataset: %w", err)
	}
	if err := s.storage.UploadBytes(ctx, minio.Storage.Staging, object, buf.Bytes(), "text/csv"); err != nil {
		return nil, fmt.Errorf("failed to stage cleaned dataset: %w", err)
	}
	s.uploadReport(ctx, summary.RunID, report)

	if err := s.store.Save(ctx, summary); err != nil {
		return nil, fmt.Errorf("failed to checkpoint run state: %w", err)
	}
	return cleaned, nil
}

func (s *PipelineService) loadCheckpoint(ctx context.Context, object string) ([]models.CleanRecord, bool) {
	exists, err := s.storage.FileExists(ctx, minio.Storage.Staging, object)
	if err != nil || !exists {
		return nil, false
	}
	obj, err := s.storage.GetFile(ctx, minio.Storage.Staging, object)
	if err != nil {
		return nil, false
	}
	defer obj.Close()

	records, err := cleaning.ReadCSV(obj)
	if err != nil {
		log.Printf("[Pipeline] staged checkpoint %s unreadable, recleaning: %v", object, err)
		return nil, false
	}
	return records, true
}

// syncRawExtracts mirrors objects from the raw-extracts bucket into the
// local raw data directory. Files already present locally are kept; sync
// failures are logged and the local directory remains authoritative.
func (s *PipelineService) syncRawExtracts(ctx context.Context) {
	objects, err := s.storage.ListFiles(ctx, minio.Storage.RawExtracts, "")
	if err != nil {
		log.Printf("[Pipeline] failed to list raw-extract bucket: %v", err)
		return
	}
	for _, info := range objects {
		local := filepath.Join(s.cfg.RawDataDir, filepath.FromSlash(info.Key))
		if _, err := os.Stat(local); err == nil {
			continue
		}
		if err := s.downloadObject(ctx, info.Key, local); err != nil {
			log.Printf("[Pipeline] failed to sync raw extract %s: %v", info.Key, err)
		}
	}
}

func (s *PipelineService) downloadObject(ctx context.Context, key, local string) error {
	obj, err := s.storage.GetFile(ctx, minio.Storage.RawExtracts, key)
	if err != nil {
		return err
	}
	defer obj.Close()

	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return err
	}
	f, err := os.Create(local)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, obj); err != nil {
		return err
	}
	return f.Close()
}

func (s *PipelineService) uploadReport(ctx context.Context, runID uuid.UUID, report *models.CleaningReport) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Printf("[Pipeline] failed to marshal cleaning report for run %s: %v", runID, err)
		return
	}
	object := fmt.Sprintf("%s/cleaning_report.json", runID)
	if err := s.storage.UploadBytes(ctx, minio.Storage.CleaningReports, object, data, "application/json"); err != nil {
		log.Printf("[Pipeline] failed to upload cleaning report for run %s: %v", runID, err)
	}
}

// loadRules imports the rule workbook when present and swaps the persisted
// set. Without a workbook the previously persisted rules stay in effect.
func (s *PipelineService) loadRules(ctx context.Context) ([]models.LateFeeRule, error) {
	f, err := os.Open(s.cfg.RuleWorkbookPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to open rule workbook: %w", err)
		}
		log.Printf("[Pipeline] rule workbook %s not found, using persisted rules", s.cfg.RuleWorkbookPath)
		return s.ruleRepo.List(ctx)
	}
	defer f.Close()

	imported, err := rules.ImportWorkbook(f)
	if err != nil {
		return nil, err
	}
	if err := s.ruleRepo.Replace(ctx, imported); err != nil {
		return nil, err
	}
	log.Printf("[Pipeline] imported %d late-fee rules from %s", len(imported), s.cfg.RuleWorkbookPath)
	return s.ruleRepo.List(ctx)
}

func (s *PipelineService) publish(ctx context.Context, summary *models.RunSummary) {
	completedAt := time.Now().UTC()
	if summary.CompletedAt != nil {
		completedAt = *summary.CompletedAt
	}
	err := s.publisher.PublishRunCompleted(ctx, event.RunCompletedEvent{
		RunID:         summary.RunID,
		Status:        summary.Status,
		Cleaning:      summary.Cleaning,
		FactsLoaded:   summary.FactsLoaded,
		FeesComputed:  summary.FeesComputed,
		UnmatchedFees: summary.UnmatchedFees,
		CompletedAt:   completedAt,
	})
	if err != nil {
		log.Printf("[Pipeline] failed to publish run event for %s: %v", summary.RunID, err)
	}
}

func stagedObject(runID uuid.UUID) string {
	return fmt.Sprintf("%s/cleaned_all.csv", runID)
}
