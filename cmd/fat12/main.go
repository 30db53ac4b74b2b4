// Command fat12 is a thin interactive/batch shell over the fat12 library,
// grounded on the teacher's cmd/main.go urfave/cli/v2 skeleton. It owns no
// FAT12 semantics itself: every command below is a direct call into the
// public fat12.Volume API.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/twelvebit/fat12"
	"github.com/urfave/cli/v2"
)

// shell holds the one Volume a CLI session can have mounted at a time, per
// spec.md §4.8's "exactly one mutable handle per mounted instance."
type shell struct {
	volume    *fat12.Volume
	file      *os.File
	imagePath string
}

func main() {
	sh := &shell{}

	app := cli.App{
		Name:  "fat12",
		Usage: "Inspect and modify FAT12 floppy disk images",
		Commands: []*cli.Command{
			{Name: "mount", Usage: "mount IMAGE", ArgsUsage: "IMAGE", Action: sh.cmdMount},
			{Name: "unmount", Usage: "unmount the current image", Action: sh.cmdUnmount},
			{Name: "format", Usage: "format GEOMETRY_NAME", ArgsUsage: "GEOMETRY_NAME", Action: sh.cmdFormat},
			{Name: "boot", Usage: "boot BOOTLOADER_FILE", ArgsUsage: "BOOTLOADER_FILE", Action: sh.cmdBoot},
			{Name: "cd", Usage: "cd DIRNAME", ArgsUsage: "DIRNAME", Action: sh.cmdCd},
			{Name: "dir", Usage: "list the current directory", Action: sh.cmdDir},
			{Name: "push", Usage: "push LOCAL_FILE [IMAGE_NAME]", ArgsUsage: "LOCAL_FILE [IMAGE_NAME]", Action: sh.cmdPush},
			{Name: "pull", Usage: "pull IMAGE_NAME [LOCAL_FILE]", ArgsUsage: "IMAGE_NAME [LOCAL_FILE]", Action: sh.cmdPull},
			{Name: "ren", Usage: "ren OLD_NAME NEW_NAME", ArgsUsage: "OLD_NAME NEW_NAME", Action: sh.cmdRen},
			{Name: "del", Usage: "del IMAGE_NAME", ArgsUsage: "IMAGE_NAME", Action: sh.cmdDel},
			{Name: "exit", Usage: "exit the shell", Action: sh.cmdExit},
			{Name: "geometries", Usage: "list the built-in geometry names", Action: sh.cmdGeometries},
		},
	}

	args := os.Args[1:]
	if len(args) == 0 {
		runInteractive(&app)
		return
	}

	// Batch mode: semicolon-separated commands on argv, per spec.md §6's
	// CLI surface contract.
	for _, line := range strings.Split(strings.Join(args, " "), ";") {
		if err := runLine(&app, line); err != nil {
			log.Fatalf("fatal error: %s", err.Error())
		}
	}
}

func runInteractive(app *cli.App) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("fat12> ")
	for scanner.Scan() {
		line := scanner.Text()
		for _, cmd := range strings.Split(line, ";") {
			if err := runLine(app, cmd); err != nil {
				fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
			}
		}
		fmt.Print("fat12> ")
	}
}

func runLine(app *cli.App, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	return app.Run(append([]string{"fat12"}, fields...))
}

func (sh *shell) cmdMount(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("mount: missing IMAGE argument")
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	v, err := fat12.Mount(f, info.Size())
	if err != nil {
		f.Close()
		return err
	}
	sh.volume = v
	sh.file = f
	sh.imagePath = path
	return nil
}

func (sh *shell) cmdUnmount(c *cli.Context) error {
	if sh.volume == nil {
		return fmt.Errorf("unmount: no image is mounted")
	}
	if err := sh.volume.Unmount(); err != nil {
		return err
	}
	err := sh.file.Close()
	sh.volume = nil
	sh.file = nil
	sh.imagePath = ""
	return err
}

func (sh *shell) cmdFormat(c *cli.Context) error {
	if sh.volume == nil {
		return fmt.Errorf("format: no image is mounted")
	}
	name := strings.Join(c.Args().Slice(), " ")
	if name == "" {
		return fmt.Errorf("format: missing GEOMETRY_NAME argument")
	}
	return sh.volume.Format(name)
}

func (sh *shell) cmdBoot(c *cli.Context) error {
	if sh.volume == nil {
		return fmt.Errorf("boot: no image is mounted")
	}
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("boot: missing BOOTLOADER_FILE argument")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return sh.volume.InstallBootloader(data)
}

func (sh *shell) cmdCd(c *cli.Context) error {
	if sh.volume == nil {
		return fmt.Errorf("cd: no image is mounted")
	}
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("cd: missing DIRNAME argument")
	}
	return sh.volume.ChangeDir(name)
}

func (sh *shell) cmdDir(c *cli.Context) error {
	if sh.volume == nil {
		return fmt.Errorf("dir: no image is mounted")
	}
	listing, err := sh.volume.ListDir()
	if err != nil {
		return err
	}
	for _, name := range listing.Names() {
		entry, _ := listing.Get(name)
		fmt.Printf("%-30s %10d\n", entry.Name, entry.Size)
	}
	return nil
}

func (sh *shell) cmdPush(c *cli.Context) error {
	if sh.volume == nil {
		return fmt.Errorf("push: no image is mounted")
	}
	local := c.Args().Get(0)
	if local == "" {
		return fmt.Errorf("push: missing LOCAL_FILE argument")
	}
	imageName := c.Args().Get(1)
	if imageName == "" {
		imageName = local
	}
	data, err := os.ReadFile(local)
	if err != nil {
		return err
	}
	return sh.volume.WriteFile(imageName, data)
}

func (sh *shell) cmdPull(c *cli.Context) error {
	if sh.volume == nil {
		return fmt.Errorf("pull: no image is mounted")
	}
	imageName := c.Args().Get(0)
	if imageName == "" {
		return fmt.Errorf("pull: missing IMAGE_NAME argument")
	}
	local := c.Args().Get(1)
	if local == "" {
		local = imageName
	}
	data, err := sh.volume.ReadFile(imageName)
	if err != nil {
		return err
	}
	return os.WriteFile(local, data, 0644)
}

func (sh *shell) cmdRen(c *cli.Context) error {
	if sh.volume == nil {
		return fmt.Errorf("ren: no image is mounted")
	}
	oldName := c.Args().Get(0)
	newName := c.Args().Get(1)
	if oldName == "" || newName == "" {
		return fmt.Errorf("ren: usage: ren OLD_NAME NEW_NAME")
	}
	return sh.volume.RenameFile(oldName, newName)
}

func (sh *shell) cmdDel(c *cli.Context) error {
	if sh.volume == nil {
		return fmt.Errorf("del: no image is mounted")
	}
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("del: missing IMAGE_NAME argument")
	}
	return sh.volume.DeleteFile(name)
}

func (sh *shell) cmdGeometries(c *cli.Context) error {
	for _, name := range fat12.Geometries() {
		fmt.Println(name)
	}
	return nil
}

func (sh *shell) cmdExit(c *cli.Context) error {
	if sh.volume != nil {
		_ = sh.cmdUnmount(c)
	}
	os.Exit(0)
	return nil
}
