package app

import (
	"errors"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/elloloop/paperlike/pkg/paperdoc"
)

// prompt is a one-line masked text entry drawn over the window.
type prompt struct {
	title  string
	hint   string
	input  string
	submit func(string)
}

func (a *App) fail(what string, err error) {
	a.status = what + " failed: " + err.Error()
	a.logger.Warn(what+" failed", zap.Error(err))
}

func (a *App) save() {
	if err := a.sess.Save(a.ctx); err != nil {
		a.fail("Save", err)
		return
	}
	a.status = "Saved"
}

// exportTarget asks where to write an export. An empty dir means the
// configured export directory; ok is false when the user cancelled.
func (a *App) exportTarget(title, desc, ext string) (name, dir string, ok bool) {
	b := dialog.File().Title(title).Filter(desc, ext)
	if d := a.sess.Config().Export.Dir; d != "" {
		b = b.SetStartDir(d)
	}
	path, err := b.Save()
	switch {
	case errors.Is(err, dialog.ErrCancelled):
		a.status = title + " cancelled"
		return "", "", false
	case err != nil:
		// No native dialog available: fall back to the default name.
		a.logger.Debug("save dialog unavailable", zap.Error(err))
		return "", "", true
	}
	return filepath.Base(path), filepath.Dir(path), true
}

func (a *App) write(what string, art paperdoc.Artifact, dir string) {
	path, err := a.sess.WriteArtifact(art, dir)
	if err != nil {
		a.fail(what, err)
		return
	}
	a.status = "Exported " + filepath.Base(path)
}

func (a *App) exportJSON() {
	name, dir, ok := a.exportTarget("Export", "Paperlike JSON", "json")
	if !ok {
		return
	}
	art, err := a.sess.Export(name)
	if err != nil {
		a.fail("Export", err)
		return
	}
	a.write("Export", art, dir)
}

func (a *App) exportSealed() {
	a.prompt = &prompt{
		title: "Sealed export",
		hint:  "Password (leave empty to only compress)",
		submit: func(password string) {
			name, dir, ok := a.exportTarget("Sealed export", "Paperlike sealed", "paperlike")
			if !ok {
				return
			}
			art, err := a.sess.ExportSealed(name, password)
			if err != nil {
				a.fail("Export", err)
				return
			}
			a.write("Export", art, dir)
		},
	}
}

func (a *App) exportPDF() {
	name, dir, ok := a.exportTarget("Print to PDF", "PDF", "pdf")
	if !ok {
		return
	}
	art, err := a.sess.ExportPDF(name)
	if err != nil {
		a.fail("PDF export", err)
		return
	}
	a.write("PDF export", art, dir)
}

func (a *App) importDocument() {
	path, err := dialog.File().Title("Import").Filter("Paperlike documents", "json", "paperlike").Load()
	if err != nil {
		if !errors.Is(err, dialog.ErrCancelled) {
			a.fail("Import", err)
		}
		return
	}
	a.importFile(filepath.Clean(path), "")
}

func (a *App) importFile(path, password string) {
	err := a.sess.ImportFile(path, password)
	switch {
	case err == nil:
		a.status = "Imported " + filepath.Base(path)
	case errors.Is(err, paperdoc.ErrPasswordRequired), errors.Is(err, paperdoc.ErrInvalidPassword):
		hint := "Password"
		if errors.Is(err, paperdoc.ErrInvalidPassword) {
			hint = "Incorrect password, try again"
		}
		a.prompt = &prompt{
			title:  "Import",
			hint:   hint,
			submit: func(pw string) { a.importFile(path, pw) },
		}
	default:
		a.fail("Import", err)
	}
}

func (a *App) copyParagraph() {
	text := a.sess.State().FocusedText()
	if text == "" {
		return
	}
	if err := clipboard.WriteAll(text); err != nil {
		a.fail("Copy", err)
		return
	}
	a.status = "Copied paragraph"
}

func (a *App) paste() {
	text, err := clipboard.ReadAll()
	if err != nil {
		a.fail("Paste", err)
		return
	}
	if text != "" && !a.sess.State().InsertText(text) {
		a.status = "Click a paragraph to paste into it"
	}
}
