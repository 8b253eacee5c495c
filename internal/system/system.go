package system

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось получить лимит файлов: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось установить лимит файлов: %v", err)
	}
}

// LogHostInfo печатает сводку по хосту перед экспортом: долгий рендер
// полезно соотносить с доступной памятью и ядрами.
func LogHostInfo() {
	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Printf("[*] Память: %.1f ГБ свободно из %.1f ГБ\n",
			float64(vm.Available)/(1<<30), float64(vm.Total)/(1<<30))
	}
	if n, err := cpu.Counts(true); err == nil {
		fmt.Printf("[*] CPU: %d логических ядер\n", n)
	}
}

// RenderWorkers выбирает число воркеров предварительного рендеринга
// страниц: по ядрам, но не больше, чем позволяет память (примерно
// 0.5 ГБ на воркера при 3x-рендере страницы).
func RenderWorkers() int {
	n := runtime.NumCPU()
	if vm, err := mem.VirtualMemory(); err == nil {
		byMem := int(vm.Available / (512 << 20))
		if byMem < 1 {
			byMem = 1
		}
		if byMem < n {
			n = byMem
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}

func FindLatestPDF(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(strings.ToLower(f.Name()), ".pdf") {
			info, err := f.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(latestTime) {
				latestTime = info.ModTime()
				latestFile = filepath.Join(dir, f.Name())
			}
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено PDF-файлов", dir)
	}

	return latestFile, nil
}

// HasFFmpeg сообщает, доступен ли ffmpeg вообще.
func HasFFmpeg() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

func GetBestH264Encoder() (string, string) {
	// Приоритеты:
	// 1. MacOS (VideoToolbox)
	// 2. NVIDIA (NVENC)
	// 3. Software (libx264)

	encoders := []struct {
		name string
		args string
	}{
		{"h264_videotoolbox", ""},
		{"h264_nvenc", ""},
	}

	for _, enc := range encoders {
		cmd := exec.Command("ffmpeg", "-encoders")
		out, err := cmd.CombinedOutput()
		if err == nil && strings.Contains(string(out), enc.name) {
			return enc.name, enc.args
		}
	}

	return "libx264", ""
}
