package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/monotasks/shufflesweep/hosts"
	"github.com/monotasks/shufflesweep/job"
	_ "github.com/monotasks/shufflesweep/job/shuffle"
	_ "github.com/monotasks/shufflesweep/job/sort"
	logcollector "github.com/monotasks/shufflesweep/log_collector"
	"github.com/monotasks/shufflesweep/report"
	"github.com/monotasks/shufflesweep/sweep"
	"github.com/monotasks/shufflesweep/target"
	"golang.org/x/crypto/ssh"
)

type stringList []string

func (sl *stringList) String() string {
	return strings.Join(*sl, ",")
}

func (sl *stringList) Set(value string) error {
	*sl = append(*sl, value)
	return nil
}

func main() {
	jfiles := stringList{}
	flag.Var(&jfiles, "job-file", "A job configuration file containing the jobs to sweep. Can be used multiple times; all jobs will be loaded. At least one is required.")
	slavesFile := flag.String("slaves-file", "/root/spark/conf/slaves", "The file listing worker hostnames, one per line.")
	ec2Tag := flag.String("ec2-tag", "", "Discover workers by EC2 tag instead of the slaves file. Format: key=value.")
	ec2PublicIP := flag.Bool("ec2-public-ip", false, "Use public instead of private IPs for workers discovered via -ec2-tag.")
	sshUser := flag.String("ssh-user", "root", "The user for SSH connections to the workers (and the driver host, if remote).")
	sshPort := flag.Int("ssh-port", 22, "The port for SSH connections.")
	sshKey := flag.String("ssh-key", "", "Path to the SSH private key. Required unless everything runs locally.")
	driverHost := flag.String("driver-host", "", "Run job commands on this host over SSH. Runs them locally by default, for when the driver runs on the master itself.")
	sparkHome := flag.String("spark-home", "/root/spark", "Root of the external distribution on the driver host.")
	hadoopHome := flag.String("hadoop-home", "/root/ephemeral-hdfs", "Root of the HDFS installation used to stage job input data.")
	logDirs := stringList{}
	flag.Var(&logDirs, "log-dir", "A remote directory to collect from every worker after each run. Can be used multiple times.")
	resultDir := flag.String("result-dir", "results", "Write the sweep report and log archives into this directory.")
	continueOnFailure := flag.Bool("continue-on-failure", false, "Keep sweeping after a failed combination instead of aborting.")
	archiveBucket := flag.String("archive-bucket", "", "Also upload each log archive to this S3 bucket. Disabled by default.")
	archivePrefix := flag.String("archive-prefix", "experiment-logs", "Key prefix for archives uploaded to S3.")
	monitorWorkers := flag.Bool("monitor-workers", false, "Sample CPU/memory/disk/network utilization on every worker while each combination runs.")
	fetchConcurrency := flag.Int("fetch-concurrency", 8, "How many workers to collect logs from at once.")
	logLevel := flag.String("log-level", "debug", "Minimum log level: debug, info, warn, or error.")
	flag.Parse()

	var level slog.Level
	err := level.UnmarshalText([]byte(*logLevel))
	if err != nil {
		panic(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if len(jfiles) == 0 {
		panic(fmt.Errorf("job-file is a required flag"))
	}
	if len(logDirs) == 0 {
		logDirs = stringList{"/root/spark/logs", "/root/spark/work"}
	}

	var workers []string
	if *ec2Tag != "" {
		key, value, ok := strings.Cut(*ec2Tag, "=")
		if !ok {
			panic(fmt.Errorf("ec2-tag must have the form key=value"))
		}
		workers, err = hosts.DiscoverEC2(&hosts.EC2DiscoveryInput{
			AwsConfig:   loadAwsConfig(),
			TagKey:      key,
			TagValue:    value,
			UsePublicIP: *ec2PublicIP,
		})
		if err != nil {
			panic(err)
		}
	} else {
		workers, err = hosts.LoadFile(*slavesFile)
		if err != nil {
			panic(err)
		}
	}
	slog.Info("running experiment assuming workers", slog.String("workers", fmt.Sprintf("%v", workers)))

	var auths []ssh.AuthMethod
	if *sshKey != "" {
		keyBuf, err := os.ReadFile(*sshKey)
		if err != nil {
			panic(err)
		}
		signer, err := ssh.ParsePrivateKey(keyBuf)
		if err != nil {
			panic(err)
		}
		auths = []ssh.AuthMethod{ssh.PublicKeys(signer)}
	}

	var driver target.Target
	if *driverHost == "" {
		driver = &target.LocalTarget{}
	} else {
		driver = &target.SSHTarget{User: *sshUser, Host: *driverHost, SSHPort: *sshPort, Auths: auths}
	}

	workerTargets := map[string]target.Target{}
	for _, worker := range workers {
		workerTargets[worker] = &target.SSHTarget{User: *sshUser, Host: worker, SSHPort: *sshPort, Auths: auths}
	}

	var uploader *logcollector.ArchiveUploader
	if *archiveBucket != "" {
		uploader = logcollector.NewArchiveUploader(&logcollector.ArchiveUploaderInput{
			AwsConfig: loadAwsConfig(),
			Bucket:    *archiveBucket,
			Prefix:    *archivePrefix,
		})
		err = uploader.SetUp()
		if err != nil {
			panic(err)
		}
	}

	collector := logcollector.NewCollector(&logcollector.CollectorInput{
		Targets:          workerTargets,
		RemoteDirs:       logDirs,
		LocalDir:         *resultDir,
		FetchConcurrency: *fetchConcurrency,
		Uploader:         uploader,
	})

	sweepCfg := sweep.Config{ContinueOnFailure: *continueOnFailure}
	if *monitorWorkers {
		sweepCfg.MonitorTargets = workerTargets
	}

	var jobs []job.Job
	for _, jf := range jfiles {
		jfData, err := os.ReadFile(jf)
		if err != nil {
			panic(err)
		}
		jobFile := job.JobFile{}
		err = json.Unmarshal(jfData, &jobFile)
		if err != nil {
			panic(err)
		}
		for i := range jobFile {
			j, err := job.DeserializeJob(&jobFile[i])
			if err != nil {
				panic(err)
			}
			jobs = append(jobs, j)
		}
	}

	rep := &report.Report{}
	start := time.Now()
	for _, j := range jobs {
		ctx := &job.Context{
			Driver:     driver,
			Workers:    workers,
			SparkHome:  *sparkHome,
			HadoopHome: *hadoopHome,
		}
		err = j.SetUp(ctx)
		if err != nil {
			panic(err)
		}

		srep := sweep.NewRunner(j, ctx, collector, sweepCfg).Run()
		rep.Sweeps = append(rep.Sweeps, srep)
		if srep.Error != "" && !*continueOnFailure {
			writeReport(rep, *resultDir, start)
			panic(fmt.Errorf("sweep %s aborted: %s", srep.Name, srep.Error))
		}
	}
	writeReport(rep, *resultDir, start)

	slog.Info("matrix sweep finished", slog.Float64("totalTimeSec", rep.TotalTimeSec))
}

func writeReport(rep *report.Report, resultDir string, start time.Time) {
	rep.TotalTimeSec = time.Since(start).Seconds()
	err := os.MkdirAll(resultDir, os.ModePerm)
	if err != nil {
		panic(err)
	}
	bytes, err := json.Marshal(rep)
	if err != nil {
		panic(err)
	}
	err = os.WriteFile(filepath.Join(resultDir, "report.json"), bytes, os.ModePerm)
	if err != nil {
		panic(err)
	}
}

func loadAwsConfig() aws.Config {
	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		panic(err)
	}
	return cfg
}
