package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"swarmsim/internal/config"
	"swarmsim/internal/sim/tracker"
	"swarmsim/internal/sim/world"
)

// SQLiteIndex is a queryable secondary index of a run. Writes are queued and
// applied by one goroutine; the JSONL tick log stays the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick          atomic.Uint64
	dropCommunication atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqCommunication
)

type req struct {
	kind reqKind

	tick world.TickLogEntry
	comm tracker.CommunicationSnapshot
}

type Stats struct {
	QueueDepth             int    `json:"queue_depth"`
	QueueCapacity          int    `json:"queue_capacity"`
	DropTickTotal          uint64 `json:"drop_tick_total"`
	DropCommunicationTotal uint64 `json:"drop_communication_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 16384),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS scenarios (
			digest TEXT PRIMARY KEY,
			json TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			robots INTEGER NOT NULL,
			newly_explored INTEGER NOT NULL,
			collisions INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS robot_poses (
			tick INTEGER NOT NULL,
			robot_id INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			heading REAL NOT NULL,
			status TEXT NOT NULL,
			task TEXT,
			PRIMARY KEY (tick, robot_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_robot_poses_robot_tick ON robot_poses(robot_id, tick);`,
		`CREATE TABLE IF NOT EXISTS collisions (
			tick INTEGER NOT NULL,
			robot_id INTEGER NOT NULL,
			PRIMARY KEY (tick, robot_id)
		);`,
		`CREATE TABLE IF NOT EXISTS communication (
			tick INTEGER PRIMARY KEY,
			interconnected INTEGER NOT NULL,
			biggest_cluster_percentage REAL NOT NULL,
			groups_count INTEGER NOT NULL,
			links INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:             len(s.ch),
		QueueCapacity:          cap(s.ch),
		DropTickTotal:          s.dropTick.Load(),
		DropCommunicationTotal: s.dropCommunication.Load(),
	}
}

func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		// Drop if the indexer falls behind.
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordCommunication(snap tracker.CommunicationSnapshot) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqCommunication, comm: snap}:
	default:
		s.dropCommunication.Add(1)
	}
}

// UpsertScenario stores the scenario a run was started from, keyed by the
// digest of its canonical JSON, and returns that digest.
func (s *SQLiteIndex) UpsertScenario(sc config.Scenario) (string, error) {
	if s == nil {
		return "", nil
	}
	b, err := json.Marshal(sc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	digest := hex.EncodeToString(sum[:])
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return "", err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('scenario_digest',?)`, digest); err != nil {
		return "", err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO scenarios(digest,json,recorded_at) VALUES(?,?,?)`, digest, string(b), now); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return digest, nil
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertTick, _ := s.db.Prepare(`INSERT OR REPLACE INTO ticks(tick,robots,newly_explored,collisions,raw_json) VALUES(?,?,?,?,?)`)
	insertPose, _ := s.db.Prepare(`INSERT OR REPLACE INTO robot_poses(tick,robot_id,x,y,heading,status,task) VALUES(?,?,?,?,?,?,?)`)
	insertCollision, _ := s.db.Prepare(`INSERT OR REPLACE INTO collisions(tick,robot_id) VALUES(?,?)`)
	insertComm, _ := s.db.Prepare(`INSERT OR REPLACE INTO communication(tick,interconnected,biggest_cluster_percentage,groups_count,links,raw_json) VALUES(?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTick, insertPose, insertCollision, insertComm} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			// If we can't start a tx, we can't do much; sleep a bit.
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			t := r.tick
			b, _ := json.Marshal(t)
			if insertTick != nil {
				if _, err := tx.Stmt(insertTick).Exec(t.Tick, len(t.Robots), t.NewlyExplored, len(t.Collisions), string(b)); err != nil {
					rollback()
					continue
				}
				opCount++
			}
			for _, rb := range t.Robots {
				if insertPose == nil || tx == nil {
					break
				}
				if _, err := tx.Stmt(insertPose).Exec(t.Tick, rb.ID, rb.Position.X, rb.Position.Y, rb.Heading, rb.Status, rb.Task); err != nil {
					rollback()
					break
				}
				opCount++
			}
			for _, id := range t.Collisions {
				if insertCollision == nil || tx == nil {
					break
				}
				if _, err := tx.Stmt(insertCollision).Exec(t.Tick, id); err != nil {
					rollback()
					break
				}
				opCount++
			}

		case reqCommunication:
			c := r.comm
			b, _ := json.Marshal(c)
			if insertComm != nil {
				if _, err := tx.Stmt(insertComm).Exec(c.Tick, c.Interconnected, c.BiggestClusterPercentage, len(c.Groups), c.Links, string(b)); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
