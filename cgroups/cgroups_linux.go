// +build linux

package cgroups

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	uuid "github.com/nu7hatch/gouuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/VishalBhosale5/benchexec/common/stats"
)

const (
	controllersFile  = "cgroup.controllers"
	subtreeFile      = "cgroup.subtree_control"
	procsFile        = "cgroup.procs"
	killFile         = "cgroup.kill"
	memoryMaxFile    = "memory.max"
	memoryPeakFile   = "memory.peak"
	memorySwapFile   = "memory.swap.max"
	memoryEventsFile = "memory.events"
	cpuStatFile      = "cpu.stat"

	releaseRetries = 5
)

type cgroupV2 struct {
	path string
	stat stats.StatsReceiver
}

// NewRunContext creates a fresh context for a single run under root, named
// run-<uuid> so concurrent engines never collide. An empty root selects
// DefaultRoot. Returns ErrUnavailable when the host can't provide one.
func NewRunContext(root string, stat stats.StatsReceiver) (Cgroup, error) {
	if root == "" {
		root = DefaultRoot
	}
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	if _, err := os.Stat(filepath.Join(root, controllersFile)); err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "no %s under %s", controllersFile, root)
	}
	// Best effort, a delegated hierarchy usually has these enabled already.
	if err := writeValue(root, subtreeFile, "+cpu +memory"); err != nil {
		log.Debugf("Could not enable subtree controllers under %s: %v", root, err)
	}
	id, err := uuid.NewV4()
	for err != nil {
		id, err = uuid.NewV4()
	}
	path := filepath.Join(root, "run-"+id.String())
	if err := os.MkdirAll(path, 0750); err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "create %s: %v", path, err)
	}
	log.WithFields(log.Fields{"path": path}).Debug("Created run cgroup")
	return &cgroupV2{path: path, stat: stat}, nil
}

func (c *cgroupV2) Path() string {
	return c.path
}

func (c *cgroupV2) AddProcess(pid int) error {
	if pid <= 0 {
		return errors.Errorf("invalid pid %d", pid)
	}
	return writeValue(c.path, procsFile, strconv.Itoa(pid))
}

func (c *cgroupV2) SetMemoryLimit(limitBytes int64) error {
	if limitBytes <= 0 {
		return errors.Errorf("invalid memory limit %d", limitBytes)
	}
	if err := writeValue(c.path, memoryMaxFile, strconv.FormatInt(limitBytes, 10)); err != nil {
		return err
	}
	// The swap file is absent when swap accounting is off, which is fine.
	if err := writeValue(c.path, memorySwapFile, "0"); err != nil {
		log.Debugf("Could not disable swap for %s: %v", c.path, err)
	}
	return nil
}

func (c *cgroupV2) Usage() (Usage, error) {
	u := Usage{}
	data, err := ioutil.ReadFile(filepath.Join(c.path, cpuStatFile))
	if err != nil {
		return u, errors.Wrap(err, "read cpu.stat")
	}
	found := false
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 || fields[0] != "usage_usec" {
			continue
		}
		usec, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return u, errors.Wrap(err, "parse cpu.stat usage_usec")
		}
		u.CPUTime = time.Duration(usec) * time.Microsecond
		found = true
		break
	}
	if !found {
		return u, errors.New("usage_usec not found in cpu.stat")
	}
	if peak, err := readInt(c.path, memoryPeakFile); err == nil && peak > 0 {
		u.MemoryPeak = peak
	}
	return u, nil
}

func (c *cgroupV2) OomKilled() bool {
	data, err := ioutil.ReadFile(filepath.Join(c.path, memoryEventsFile))
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		if fields[0] == "oom_kill" {
			val, _ := strconv.ParseInt(fields[1], 10, 64)
			return val > 0
		}
	}
	return false
}

func (c *cgroupV2) Kill() error {
	killPath := filepath.Join(c.path, killFile)
	if _, err := os.Stat(killPath); err != nil {
		return err
	}
	return ioutil.WriteFile(killPath, []byte("1"), 0600)
}

func (c *cgroupV2) Release() error {
	if err := c.Kill(); err != nil {
		log.Debugf("Kill before release of %s: %v", c.path, err)
	}
	tries := 0
	err := backoff.Retry(func() error {
		tries++
		if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
			// Plain directories still hold the control files we wrote,
			// rmdir alone only works on real cgroupfs.
			if rmErr := os.RemoveAll(c.path); rmErr != nil {
				return rmErr
			}
		}
		return nil
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), releaseRetries))
	if tries > 1 {
		c.stat.Counter(stats.CgroupReleaseRetriedCounter).Inc(1)
	}
	return errors.Wrapf(err, "release %s", c.path)
}

func writeValue(dir, name, value string) error {
	path := filepath.Join(dir, name)
	return errors.Wrapf(ioutil.WriteFile(path, []byte(value), 0640), "write %s", path)
}

func readInt(dir, name string) (int64, error) {
	data, err := ioutil.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
}
