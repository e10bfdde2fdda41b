package cli

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/certhub/internal/client/api"
	"github.com/dmitrijs2005/certhub/internal/filex"
)

var errNotInstitution = errors.New("sign in with a university account first")

func (a *App) requireInstitution() error {
	if !a.isInstitution() {
		return errNotInstitution
	}
	return nil
}

func (a *App) UploadTemplate(ctx context.Context, imagePath, layoutPath string) error {
	if err := a.requireInstitution(); err != nil {
		return err
	}
	img, err := os.ReadFile(imagePath)
	if err != nil {
		return err
	}
	var layout []byte
	if layoutPath != "" {
		if layout, err = os.ReadFile(layoutPath); err != nil {
			return err
		}
	}

	tpl, err := a.api.UploadTemplate(ctx, filepath.Base(imagePath), img, layout)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Template uploaded: %s\n", tpl.ID)
	return nil
}

func (a *App) Templates(ctx context.Context) error {
	if err := a.requireInstitution(); err != nil {
		return err
	}
	byID, err := a.api.Templates(ctx)
	if err != nil {
		return err
	}
	if len(byID) == 0 {
		fmt.Fprintln(a.out, "No templates")
		return nil
	}

	list := make([]api.Template, 0, len(byID))
	for _, t := range byID {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UploadedAt.Before(list[j].UploadedAt) })

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tUPLOADED")
	for _, t := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.Filename, t.UploadedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

// Issue uploads a CSV batch and prints the ids assigned to each row.
func (a *App) Issue(ctx context.Context, csvPath, templateID string) error {
	if err := a.requireInstitution(); err != nil {
		return err
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		return err
	}

	rows, err := a.api.Issue(ctx, filepath.Base(csvPath), data, templateID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Issued %d certificate(s)\n", len(rows))
	for _, r := range rows {
		fmt.Fprintf(a.out, "  #%d  %s\n", r.CertID, holderName(r.Student))
	}
	return nil
}

func (a *App) List(ctx context.Context) error {
	if err := a.requireInstitution(); err != nil {
		return err
	}
	certs, err := a.api.Certificates(ctx)
	if err != nil {
		return err
	}
	return a.printCertificates(certs)
}

// Mine lists the signed-in holder's certificates.
func (a *App) Mine(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errors.New("log in first")
	}
	certs, err := a.api.HolderCertificates(ctx, "")
	if err != nil {
		return err
	}
	return a.printCertificates(certs)
}

func (a *App) Download(ctx context.Context, id, dir string) error {
	certID, err := parseCertID(id)
	if err != nil {
		return err
	}
	art, err := a.api.Download(ctx, certID)
	if err != nil {
		return err
	}

	path, err := a.save(dir, art.Filename, art.Data)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %s (%d bytes)\n", path, len(art.Data))
	return nil
}

func (a *App) Resend(ctx context.Context, id string) error {
	if err := a.requireInstitution(); err != nil {
		return err
	}
	certID, err := parseCertID(id)
	if err != nil {
		return err
	}
	to, err := a.api.Resend(ctx, certID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Certificate #%d queued for %s\n", certID, to)
	return nil
}

// ClearAll deletes every certificate, template and proof after confirmation.
func (a *App) ClearAll(ctx context.Context) error {
	if err := a.requireInstitution(); err != nil {
		return err
	}
	ok, err := confirm(a.reader, "Delete ALL certificates, templates and proofs?", a.out)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}

	res, err := a.api.ClearAll(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %d certificate(s), %d template(s), %d proof(s)\n",
		res.Certificates, res.Templates, res.Proofs)
	return nil
}

func (a *App) Verify(ctx context.Context, identifier string) error {
	v, err := a.api.Verify(ctx, identifier)
	if err != nil {
		return err
	}
	a.printVerification(v)
	return nil
}

func (a *App) VerifyToken(ctx context.Context, token string) error {
	v, err := a.api.VerifyToken(ctx, token)
	if err != nil {
		return err
	}
	a.printVerification(v)
	return nil
}

func (a *App) Search(ctx context.Context, query string) error {
	res, err := a.api.Search(ctx, query)
	if err != nil {
		return err
	}
	certs := make([]api.Certificate, len(res))
	for i, r := range res {
		certs[i] = r.Certificate
	}
	return a.printCertificates(certs)
}

// QR requests a verification QR code and saves the PNG next to downloads.
func (a *App) QR(ctx context.Context, identifier string) error {
	q, err := a.api.GenerateQR(ctx, identifier)
	if err != nil {
		return err
	}
	png, err := base64.StdEncoding.DecodeString(q.Base64)
	if err != nil {
		return fmt.Errorf("decode qr: %w", err)
	}

	path, err := a.save("", "qr_"+identifier+".png", png)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %s\nToken: %s\n", path, q.Payload["token"])
	return nil
}

func (a *App) save(dir, filename string, data []byte) (string, error) {
	if dir == "" {
		dir = a.config.DownloadDir
	}
	dir, err := filex.EnsureDir(dir)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, filepath.Base(filename))
	if err := filex.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (a *App) printCertificates(certs []api.Certificate) error {
	if len(certs) == 0 {
		fmt.Fprintln(a.out, "No certificates")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tISSUED\tEMAILED")
	for _, c := range certs {
		emailed := "-"
		if c.EmailedTo != nil {
			emailed = *c.EmailedTo
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.ID, holderName(c.Fields), c.GeneratedAt.Format("2006-01-02"), emailed)
	}
	return tw.Flush()
}

func (a *App) printVerification(v *api.Verification) {
	if !v.Valid {
		fmt.Fprintln(a.out, "INVALID: no matching certificate or its contents were altered")
		return
	}
	fmt.Fprintln(a.out, "VALID")
	if v.Certificate == nil {
		return
	}
	fmt.Fprintf(a.out, "  Certificate #%d issued %s\n", v.Certificate.ID, v.Certificate.GeneratedAt.Format("2006-01-02"))

	keys := make([]string, 0, len(v.Certificate.Fields))
	for k := range v.Certificate.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(a.out, "  %s: %s\n", k, v.Certificate.Fields[k])
	}
}

func parseCertID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid certificate id %q", s)
	}
	return id, nil
}

func holderName(fields map[string]string) string {
	for _, k := range []string{"name", "student_name", "full_name"} {
		if v := strings.TrimSpace(fields[k]); v != "" {
			return v
		}
	}
	return "-"
}
