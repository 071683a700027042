package main

import (
	"fmt"
	"io"

	"swarmsim/internal/persistence/indexdb"
	"swarmsim/internal/sim/world"
)

type indexStats = indexdb.Stats

// writeMetrics renders a minimal Prometheus exposition of the latest snapshot.
func writeMetrics(w io.Writer, run string, snap world.Snapshot, idx *indexStats) {
	fmt.Fprintf(w, "# HELP swarmsim_tick Current simulation tick.\n")
	fmt.Fprintf(w, "# TYPE swarmsim_tick gauge\n")
	fmt.Fprintf(w, "swarmsim_tick{run=%q} %d\n", run, snap.Tick)

	fmt.Fprintf(w, "# HELP swarmsim_robots Number of robots.\n")
	fmt.Fprintf(w, "# TYPE swarmsim_robots gauge\n")
	fmt.Fprintf(w, "swarmsim_robots{run=%q} %d\n", run, len(snap.Robots))

	fmt.Fprintf(w, "# HELP swarmsim_explored_triangles Triangles seen by any robot.\n")
	fmt.Fprintf(w, "# TYPE swarmsim_explored_triangles gauge\n")
	fmt.Fprintf(w, "swarmsim_explored_triangles{run=%q} %d\n", run, snap.ExploredTriangles)

	fmt.Fprintf(w, "# HELP swarmsim_explored_proportion Explored share of the explorable map (0..1).\n")
	fmt.Fprintf(w, "# TYPE swarmsim_explored_proportion gauge\n")
	fmt.Fprintf(w, "swarmsim_explored_proportion{run=%q} %.6f\n", run, snap.ExploredProportion)

	colliding := 0
	for _, r := range snap.Robots {
		if r.Colliding {
			colliding++
		}
	}
	fmt.Fprintf(w, "# HELP swarmsim_robots_colliding Robots currently touching a wall.\n")
	fmt.Fprintf(w, "# TYPE swarmsim_robots_colliding gauge\n")
	fmt.Fprintf(w, "swarmsim_robots_colliding{run=%q} %d\n", run, colliding)

	c := snap.Communication
	interconnected := 0
	if c.Interconnected {
		interconnected = 1
	}
	fmt.Fprintf(w, "# HELP swarmsim_communication_interconnected 1 when all robots form one group at the last sample.\n")
	fmt.Fprintf(w, "# TYPE swarmsim_communication_interconnected gauge\n")
	fmt.Fprintf(w, "swarmsim_communication_interconnected{run=%q} %d\n", run, interconnected)

	fmt.Fprintf(w, "# HELP swarmsim_communication_biggest_cluster_percentage Share of robots in the largest group.\n")
	fmt.Fprintf(w, "# TYPE swarmsim_communication_biggest_cluster_percentage gauge\n")
	fmt.Fprintf(w, "swarmsim_communication_biggest_cluster_percentage{run=%q} %.3f\n", run, c.BiggestClusterPercentage)

	if idx == nil {
		return
	}
	fmt.Fprintf(w, "# HELP swarmsim_index_queue_depth Index writer backlog.\n")
	fmt.Fprintf(w, "# TYPE swarmsim_index_queue_depth gauge\n")
	fmt.Fprintf(w, "swarmsim_index_queue_depth{run=%q} %d\n", run, idx.QueueDepth)

	fmt.Fprintf(w, "# HELP swarmsim_index_dropped_total Index writes dropped because the queue was full.\n")
	fmt.Fprintf(w, "# TYPE swarmsim_index_dropped_total counter\n")
	fmt.Fprintf(w, "swarmsim_index_dropped_total{run=%q,kind=%q} %d\n", run, "tick", idx.DropTickTotal)
	fmt.Fprintf(w, "swarmsim_index_dropped_total{run=%q,kind=%q} %d\n", run, "communication", idx.DropCommunicationTotal)
}
