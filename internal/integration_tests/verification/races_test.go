//go:build integration

package verification

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"vouch/internal/audit"
	auditpostgres "vouch/internal/audit/store/postgres"
	badgemodels "vouch/internal/badge/models"
	badgeservice "vouch/internal/badge/service"
	badgestore "vouch/internal/badge/store"
	"vouch/internal/document/blobstore"
	docmodels "vouch/internal/document/models"
	documentservice "vouch/internal/document/service"
	documentstore "vouch/internal/document/store"
	ninmodels "vouch/internal/nin/models"
	"vouch/internal/nin/oracle"
	"vouch/internal/nin/secrets"
	ninservice "vouch/internal/nin/service"
	ninstore "vouch/internal/nin/store"
	ratelimitmodels "vouch/internal/ratelimit/models"
	ratelimitstore "vouch/internal/ratelimit/store"
	"vouch/internal/trust/cache"
	"vouch/internal/trust/score"
	id "vouch/pkg/domain"
	dErrors "vouch/pkg/domain-errors"
	"vouch/pkg/testutil/containers"
)

const workers = 16

type RaceSuite struct {
	suite.Suite
	pg     *containers.PostgresContainer
	audit  *audit.Service
	badges *badgeservice.Service
	docs   *documentservice.Service
	nin    *ninservice.Service
}

func TestRaceSuite(t *testing.T) {
	suite.Run(t, new(RaceSuite))
}

func (s *RaceSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
}

func (s *RaceSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background()))

	s.audit = audit.New(auditpostgres.New(s.pg.DB))
	s.badges = badgeservice.New(badgestore.NewPostgres(s.pg.DB), badgeservice.WithAuditLogger(s.audit))
	s.docs = documentservice.New(documentstore.NewPostgres(s.pg.DB), blobstore.NewMemoryStore("http://blobs.test"),
		documentservice.WithAuditLogger(s.audit), documentservice.WithBadgeAwarder(s.badges))
	sealer, err := secrets.New(bytes.Repeat([]byte("k"), 32), []byte("integration"))
	s.Require().NoError(err)
	s.nin = ninservice.New(ninstore.NewPostgres(s.pg.DB), slowOracle{oracle.NewSandbox(nil)}, sealer,
		ninservice.WithAuditLogger(s.audit), ninservice.WithBadgeAwarder(s.badges))
}

// slowOracle widens the window between BeginAttempt and Complete.
type slowOracle struct{ next oracle.Oracle }

func (o slowOracle) Verify(ctx context.Context, claim oracle.Claim) (*oracle.Result, error) {
	time.Sleep(100 * time.Millisecond)
	return o.next.Verify(ctx, claim)
}

// race runs fn on every worker at once and returns the errors in no order.
func race(fn func() error) []error {
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, workers)
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = fn()
		}()
	}
	close(start)
	wg.Wait()
	return errs
}

func tally(errs []error) (ok, conflicts, other int) {
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case dErrors.HasCode(err, dErrors.CodeConflict):
			conflicts++
		default:
			other++
		}
	}
	return ok, conflicts, other
}

func (s *RaceSuite) TestConcurrentNINInitiateVerifiesOnce() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	claim := ninmodels.Claim{
		NIN: "12345678901", FirstName: "Amaka", LastName: "Eze", DateOfBirth: "1990-04-12",
		Gender: "female", StateOfOrigin: "Enugu",
	}

	ok, conflicts, other := tally(race(func() error {
		_, err := s.nin.Initiate(ctx, userID, claim)
		return err
	}))
	s.Equal(1, ok)
	s.Equal(workers-1, conflicts)
	s.Zero(other)

	st, err := s.nin.Status(ctx, userID)
	s.Require().NoError(err)
	s.Equal(ninmodels.StatusVerified, st.Status)

	initiated, err := s.audit.ForUser(ctx, userID, audit.ListRequest{Criteria: audit.Criteria{Action: audit.ActionInitiated}})
	s.Require().NoError(err)
	s.Equal(1, initiated.Total)

	badges, err := s.badges.GetUserBadges(ctx, userID)
	s.Require().NoError(err)
	s.Len(badges.Active, 1)
}

func (s *RaceSuite) TestConcurrentAwardKeepsOneActiveBadge() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	awarder := id.UserID(uuid.New())

	ok, conflicts, other := tally(race(func() error {
		_, err := s.badges.Award(ctx, badgemodels.AwardRequest{
			UserID:    userID,
			Type:      badgemodels.TypeCommunityLeader,
			Category:  badgemodels.CategoryLeadership,
			AwardedBy: &awarder,
		})
		return err
	}))
	s.Equal(1, ok)
	s.Equal(workers-1, conflicts)
	s.Zero(other)

	n, err := s.badges.ActiveCount(ctx, userID)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *RaceSuite) TestConcurrentApprovalsVerifyOneDocumentPerType() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	reviewer := id.UserID(uuid.New())

	docIDs := make([]id.DocumentID, workers)
	for i := range docIDs {
		doc, err := s.docs.Upload(ctx, userID, docmodels.UploadRequest{
			Type: docmodels.TypePassport,
			File: docmodels.File{Data: []byte("%PDF-1.7 passport scan"), MimeType: "application/pdf"},
		})
		s.Require().NoError(err)
		docIDs[i] = doc.ID
	}

	var next sync.Mutex
	i := 0
	ok, conflicts, other := tally(race(func() error {
		next.Lock()
		docID := docIDs[i]
		i++
		next.Unlock()
		_, err := s.docs.Verify(ctx, docID, true, reviewer, "")
		return err
	}))
	s.Equal(1, ok)
	s.Equal(workers-1, conflicts)
	s.Zero(other)

	n, err := s.docs.VerifiedCount(ctx, userID)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func TestRedisTrustCache(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	c := cache.NewRedis(rc.Client, time.Minute)
	userID := id.UserID(uuid.New())

	_, gen, ok, err := c.Get(ctx, userID)
	if err != nil || ok {
		t.Fatalf("expected a miss, got ok=%v err=%v", ok, err)
	}

	want := score.Breakdown{Total: 42, MaxScore: 140, Percentage: 30}
	if err := c.Set(ctx, userID, gen, &want); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, _, ok, err := c.Get(ctx, userID)
	if err != nil || !ok || got.Total != want.Total {
		t.Fatalf("expected cached breakdown, got %+v ok=%v err=%v", got, ok, err)
	}

	if err := c.Invalidate(ctx, userID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, _, ok, _ := c.Get(ctx, userID); ok {
		t.Fatal("expected a miss after invalidation")
	}

	// a score computed before the invalidation must not be served after it
	if err := c.Set(ctx, userID, gen, &want); err != nil {
		t.Fatalf("late set: %v", err)
	}
	if _, _, ok, _ := c.Get(ctx, userID); ok {
		t.Fatal("late write from an older generation was served")
	}
}

func TestRedisRateLimitSharedAcrossReplicas(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	limit := ratelimitmodels.Limit{Requests: 5, Window: time.Minute}
	replicas := []*ratelimitstore.RedisStore{ratelimitstore.NewRedis(rc.Client), ratelimitstore.NewRedis(rc.Client)}

	var (
		mu      sync.Mutex
		allowed int
	)
	errs := race(func() error {
		res, err := replicas[time.Now().Nanosecond()%2].Allow(ctx, "write:user:shared", limit)
		if err != nil {
			return err
		}
		if res.Allowed {
			mu.Lock()
			allowed++
			mu.Unlock()
		}
		return nil
	})
	for _, err := range errs {
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
	}
	if allowed != limit.Requests {
		t.Fatalf("expected %d allowed across replicas, got %d", limit.Requests, allowed)
	}
}
