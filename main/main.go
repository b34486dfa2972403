package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/phil-mansfield/amrpart/amr"
	"github.com/phil-mansfield/amrpart/density"
	"github.com/phil-mansfield/amrpart/io"
	"github.com/phil-mansfield/amrpart/particle"
)

var (
	threads  int
	verbose  bool
	freshIDs bool
	mass     float64

	particleOut, meshOut string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "amrpart",
	Short: "Locate and deposit particles on an AMR hierarchy",
	Long: `amrpart places particles on the grid blocks of a block-structured AMR
hierarchy and deposits their mass onto it with cloud-in-cell weights.

Hierarchies are described by gcfg (or YAML) files. Run 'amrpart
example-config' for a commented example. Particle files are whitespace
separated tables with the id in the first column and the position in the
next Dim columns.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("Could not initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var locateCmd = &cobra.Command{
	Use:   "locate HIERARCHY PARTICLES",
	Short: "Find the level, block and cell of every particle",
	Long: `Reads a hierarchy file and a particle table, places every particle on the
finest level that covers it (wrapping periodic coordinates), and prints one
line per particle as "id cpu lev grid (i,j,k) x y z". Particles outside a
non-periodic boundary are printed with a negated id.`,
	Args: cobra.ExactArgs(2),
	RunE: locateMain,
}

var depositCmd = &cobra.Command{
	Use:   "deposit HIERARCHY PARTICLES",
	Short: "Deposit particle mass onto the hierarchy",
	Long: `Locates every particle as 'locate' does and deposits its mass onto the
hierarchy, conserving mass across coarse/fine boundaries. The mesh is written
in the binary block format described in the io package.`,
	Args: cobra.ExactArgs(2),
	RunE: depositMain,
}

var exampleConfigCmd = &cobra.Command{
	Use:   "example-config",
	Short: "Print an example hierarchy file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), io.ExampleHierarchyFile)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().IntVar(
		&threads, "threads", runtime.NumCPU(),
		"Number of threads used. Default is the number of logical cores.",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "Enable debug logging.",
	)
	rootCmd.PersistentFlags().BoolVar(
		&freshIDs, "fresh-ids", false,
		"Ignore the ids in the particle file and number particles from 1.",
	)

	locateCmd.Flags().StringVarP(
		&particleOut, "out", "o", "", "Output file. Default is stdout.",
	)
	depositCmd.Flags().StringVarP(
		&meshOut, "out", "o", "mesh.bin", "Output mesh file.",
	)
	depositCmd.Flags().Float64Var(
		&mass, "mass", 1, "Mass of a single particle.",
	)

	rootCmd.AddCommand(locateCmd, depositCmd, exampleConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// load reads the hierarchy and particles and locates every particle.
func load(hierarchyFile, particleFile string) (
	*amr.Levels, []particle.Particle, error,
) {
	con, err := io.ReadHierarchyConfig(hierarchyFile)
	if err != nil {
		return nil, nil, err
	}
	h, err := con.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("Invalid hierarchy in '%s': %w",
			hierarchyFile, err)
	}
	logger.Debug("Read hierarchy",
		zap.String("file", hierarchyFile),
		zap.Int("levels", h.FinestLevel()+1),
	)

	ps, err := io.ReadParticles(particleFile, amr.Dim(h))
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Read particles",
		zap.String("file", particleFile), zap.Int("count", len(ps)),
	)

	if freshIDs {
		particle.SetNextID(1)
		for i := range ps {
			ps[i].ID = particle.NextID()
		}
	}

	invalid, err := reconcileAll(particle.NewLocator(h, logger), ps)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Located particles",
		zap.Int("count", len(ps)), zap.Int("invalidated", invalid),
	)

	return h, ps, nil
}

// reconcileAll locates every particle of ps with workers interleaved over the
// slice and returns the number of particles that had to be invalidated.
func reconcileAll(l *particle.Locator, ps []particle.Particle) (int, error) {
	workers := threads
	if workers < 1 {
		workers = 1
	}

	counts := make([]int, workers)
	g := &errgroup.Group{}
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() (err error) {
			defer amr.Recover(&err)
			for i := w; i < len(ps); i += workers {
				if !l.Reconcile(&ps[i], false) {
					counts[w]++
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	n := 0
	for _, c := range counts {
		n += c
	}
	return n, nil
}

func locateMain(cmd *cobra.Command, args []string) error {
	h, ps, err := load(args[0], args[1])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if particleOut != "" {
		f, err := os.Create(particleOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	return io.WriteParticles(out, ps, amr.Dim(h))
}

func depositMain(cmd *cobra.Command, args []string) error {
	h, ps, err := load(args[0], args[1])
	if err != nil {
		return err
	}

	m, err := assign(h, ps)
	if err != nil {
		return err
	}
	logger.Info("Deposited particles",
		zap.Float64("total", m.Total(0)), zap.Float64("lost", m.Lost),
	)
	for lev := range m.Levels {
		logger.Debug("Level mass",
			zap.Int("level", lev), zap.Float64("mass", m.LevelTotal(lev, 0)),
		)
	}

	f, err := os.Create(meshOut)
	if err != nil {
		return err
	}
	if err := io.WriteMesh(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// assign deposits ps, reporting library panics as errors.
func assign(h *amr.Levels, ps []particle.Particle) (m *density.Mesh, err error) {
	defer amr.Recover(&err)
	return density.Assign(amr.NewRegions(h), ps, mass, threads), nil
}
