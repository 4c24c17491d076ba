package mlog

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	rotateSize     = int64(100 * 1024 * 1024) // 100 MB
	rotateInterval = 30 * time.Second
)

type fileLogger struct {
	path   string
	file   *os.File
	ll     *log.Logger
	buff   chan string
	level  Level
	stdOut bool
}

func newFileLogger(logpath, logName string, level Level, stdOut bool) (*fileLogger, error) {
	// 默认使用当前路径
	if len(logpath) == 0 {
		logpath = "."
	}
	logname := filepath.Join(logpath, genLogName(logName))
	logfile, err := openFile(logname)
	if err != nil {
		return nil, err
	}
	if stdOut {
		log.SetFlags(log.Ldate | log.Lmicroseconds)
	}
	return &fileLogger{
		path:   logpath,
		ll:     log.New(logfile, "", log.Ldate|log.Lmicroseconds),
		file:   logfile,
		buff:   make(chan string, 0x4000),
		level:  level,
		stdOut: stdOut,
	}, nil
}

// Start 单独协程消费缓冲, 定期检查体积做切割
func (me *fileLogger) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("log recover error %v\n", r)
			}
			me.file.Close()
			wg.Done()
		}()

		ticker := time.NewTicker(rotateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				for {
					select {
					case str := <-me.buff:
						me.write(str)
					default:
						return
					}
				}
			case str := <-me.buff:
				me.write(str)
			case <-ticker.C:
				me.checkRotate()
			}
		}
	}()
}

func (me *fileLogger) write(str string) {
	if me.stdOut {
		log.Println(str)
	}
	me.ll.Println(str)
}

func (me *fileLogger) checkRotate() {
	fileInfo, err := os.Stat(me.file.Name())
	if err != nil {
		log.Println("mlog stat error", err)
		return
	}
	if fileInfo.Size() <= rotateSize {
		return
	}
	file, err := rotateLogFile(me.file.Name())
	if err != nil {
		log.Println("mlog rotateLogFile error", err)
		return
	}
	me.ll.SetOutput(file)
	me.file.Close()
	me.file = file
}

func (me *fileLogger) log(level Level, args ...any) {
	if me.IsLevelEnabled(level) {
		me.buff <- (getLevelTag(level) + fmt.Sprint(args...))
	}
}

func (me *fileLogger) logf(level Level, format string, args ...any) {
	if me.IsLevelEnabled(level) {
		me.buff <- (getLevelTag(level) + fmt.Sprintf(format, args...))
	}
}

func (me *fileLogger) IsLevelEnabled(level Level) bool {
	return me.level >= level
}

func (me *fileLogger) Trace(v ...any) {
	me.log(TraceLevel, v...)
}

func (me *fileLogger) Tracef(format string, v ...any) {
	me.logf(TraceLevel, format, v...)
}

func (me *fileLogger) Debug(v ...any) {
	me.log(DebugLevel, v...)
}

func (me *fileLogger) Debugf(format string, v ...any) {
	me.logf(DebugLevel, format, v...)
}

func (me *fileLogger) Info(v ...any) {
	me.log(InfoLevel, v...)
}

func (me *fileLogger) Infof(format string, v ...any) {
	me.logf(InfoLevel, format, v...)
}

func (me *fileLogger) Warn(v ...any) {
	me.log(WarnLevel, v...)
}

func (me *fileLogger) Warnf(format string, v ...any) {
	me.logf(WarnLevel, format, v...)
}

func (me *fileLogger) Error(v ...any) {
	me.log(ErrorLevel, v...)
}

func (me *fileLogger) Errorf(format string, v ...any) {
	me.logf(ErrorLevel, format, v...)
}

func (me *fileLogger) Fatal(v ...any) {
	me.log(FatalLevel, v...)
	// 留时间给消费协程落盘
	time.Sleep(time.Second)
	os.Exit(1)
}

func (me *fileLogger) Fatalf(format string, v ...any) {
	me.logf(FatalLevel, format, v...)
	time.Sleep(time.Second)
	os.Exit(1)
}

func genLogName(logName string) string {
	if logName == "" {
		logName = "mlog"
	}
	return logName + ".log"
}

const (
	defaultDirMode  os.FileMode = 0755
	defaultFileMode os.FileMode = 0644
	defaultFileFlag int         = os.O_APPEND | os.O_CREATE | os.O_WRONLY
)

func openFile(fullpath string) (*os.File, error) {
	fullpath = strings.ReplaceAll(fullpath, "\\", "/")
	dir := filepath.Dir(fullpath)
	if _, err := os.Stat(dir); err != nil && !os.IsExist(err) {
		if err = os.MkdirAll(dir, defaultDirMode); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(fullpath, defaultFileFlag, defaultFileMode)
}

func rotateLogFile(filePath string) (*os.File, error) {
	timestamp := time.Now().Format("20060102_150405")
	newFilePath := fmt.Sprintf("%s.%s", filePath, timestamp)

	err := os.Rename(filePath, newFilePath)
	if err != nil {
		return nil, err
	}
	return os.Create(filePath)
}
